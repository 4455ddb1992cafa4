package apperrors

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAccessDenied  = errors.New("access denied")
	ErrValidation    = errors.New("validation failed")
	ErrOfferResolved = errors.New("offer already resolved")
	ErrInternal      = errors.New("internal server error")
)

// StatusCode maps a service error to an HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation), errors.Is(err, ErrOfferResolved):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
