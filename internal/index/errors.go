package index

import (
	"errors"
	"net/http"
)

var (
	ErrWebsiteNotFound = errors.New("website not found")
	ErrInvalidRange    = errors.New("invalid date range")
)

// MapHTTPStatus maps index errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrWebsiteNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
