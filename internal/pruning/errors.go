package pruning

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound       = errors.New("pruning not found")
	ErrNoContent      = errors.New("source has no extractable content")
	ErrInvalidIndices = errors.New("line index out of range")
)

// MapHTTPStatus maps pruning domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidIndices) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
