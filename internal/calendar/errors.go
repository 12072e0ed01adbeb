package calendar

import "errors"

var (
	ErrYearNotCovered     = errors.New("year not covered by calendar tables")
	ErrUnknownPeriod      = errors.New("unknown period")
	ErrUnknownZone        = errors.New("unknown school holiday zone")
	ErrUnknownLiturgical  = errors.New("unknown liturgical day")
	ErrInvalidCustomRange = errors.New("invalid custom period bounds")
)
