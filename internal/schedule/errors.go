package schedule

import "errors"

var (
	// ErrInvalidRule is returned when a schedule item or one of its rules is malformed.
	ErrInvalidRule = errors.New("invalid schedule rule")
	// ErrNoMatchingYear is returned when no year in the look-back range matches
	// the weekday of a year-less one-off date.
	ErrNoMatchingYear = errors.New("no year matches one-off weekday")
)
