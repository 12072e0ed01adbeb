package prompts

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound          = errors.New("prompt override not found")
	ErrActive            = errors.New("prompt override is active")
	ErrEmptyInstructions = errors.New("instructions required")
)

// MapHTTPStatus maps prompt domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrActive):
		return http.StatusConflict
	case errors.Is(err, ErrEmptyInstructions):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
