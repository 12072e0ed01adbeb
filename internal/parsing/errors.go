package parsing

import (
	"errors"
	"net/http"
)

// Domain errors for parsing operations.
var (
	ErrNotFound      = errors.New("parsing not found")
	ErrNoOutput      = errors.New("parsing has no output to validate")
	ErrOracleFailed  = errors.New("oracle call failed")
	ErrInvalidOutput = errors.New("invalid schedules output")
	// ErrOracleUnavailable means the oracle refused the call without trying it.
	ErrOracleUnavailable = errors.New("oracle unavailable")
)

// MapHTTPStatus maps parsing domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoOutput):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidOutput):
		return http.StatusBadRequest
	case errors.Is(err, ErrOracleUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
