package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// ErrValidation marks input that was rejected before reaching storage
	ErrValidation = errors.New("validation failed")

	// ErrStorage marks durable storage being unavailable. It is never a lockout decision.
	ErrStorage = errors.New("storage unavailable")

	// Identity state errors
	ErrPermanentlyBlocked = errors.New("identity is permanently blocked")
	ErrDuplicateAccount   = errors.New("account already exists for this email")
	ErrAccountBlocked     = errors.New("account is blocked")
)
