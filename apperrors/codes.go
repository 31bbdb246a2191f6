package apperrors

import (
	"errors"
	"net/http"
)

// Stable error codes returned as {"error": "...", "code": "..."}.
const (
	CodeInvalidRequest    = "invalid_request"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeNotFound          = "not_found"
	CodeInvalidAssignment = "invalid_assignment"
	CodeConflict          = "conflict"
	CodeRateLimited       = "rate_limited"
	CodeUnavailable       = "upstream_unavailable"
	CodeInternal          = "internal_error"
)

// HTTPStatus maps an error chain to its HTTP status and stable code.
func HTTPStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, ErrInvalidAssignment):
		return http.StatusUnprocessableEntity, CodeInvalidAssignment
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, CodeUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
