// Package apperr defines the error taxonomy shared by the service and
// handler layers. Handlers map these sentinels to HTTP status codes in one
// place; anything unrecognized is treated as an internal error and its
// detail is logged, not returned.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthorized means no identity could be resolved for the request.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means an identity is present but lacks permission.
	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("already exists")

	ErrInvalidCredential = errors.New("invalid credentials")
	ErrMissingToken      = errors.New("missing token")
	ErrInvalidToken      = errors.New("token expired or invalid")
)

// Status returns the HTTP status code for err. Unknown errors map to 500.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredential), errors.Is(err, ErrMissingToken):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidToken):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message for err. Internal errors are
// collapsed to a generic message so persistence detail never leaks.
func Message(err error) string {
	for _, sentinel := range []error{
		ErrUnauthorized, ErrForbidden, ErrNotFound, ErrConflict,
		ErrInvalidCredential, ErrMissingToken, ErrInvalidToken,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "Internal server error"
}
