package apperrors

import "errors"

// Sentinel errors for controllers to map to HTTP status.
var (
	ErrValidation          = errors.New("validation failed")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrInvalidAssignment   = errors.New("organization does not handle this issue category")
	ErrUpstreamUnavailable = errors.New("backing store unavailable")
	ErrConflict            = errors.New("already exists")
)
