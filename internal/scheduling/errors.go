package scheduling

import (
	"errors"
	"net/http"
)

// Domain errors for scheduling runs.
var (
	ErrNotFound          = errors.New("scheduling not found")
	ErrWebsiteNotFound   = errors.New("website not found")
	ErrSuperseded        = errors.New("scheduling superseded")
	ErrDuplicateRun      = errors.New("website already has a run in this status")
	ErrInvalidStatus     = errors.New("invalid scheduling status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownStage      = errors.New("unknown stage")
	ErrStagePanic        = errors.New("stage panicked")
)

// Stage failures wrap the underlying cause.
var (
	ErrPruneFailed = errors.New("prune failed")
	ErrParseFailed = errors.New("parse failed")
	ErrMatchFailed = errors.New("match failed")
	ErrIndexFailed = errors.New("index failed")
)

// MapHTTPStatus maps scheduling errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrWebsiteNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateRun):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidStatus):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
