package services

import "errors"

// Sentinel errors returned by the core services. Callers branch with errors.Is;
// the HTTP layer maps each to a stable status code. Anything else bubbling out
// of a service is a storage failure and is surfaced, never swallowed.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("account not found")
	ErrForbidden         = errors.New("you don't own this account")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrConflict          = errors.New("concurrent update conflict")
)
