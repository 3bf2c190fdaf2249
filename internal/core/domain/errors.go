package domain

import "errors"

// Sentinel errors. Handlers and the central HTTP error handler map these to
// status codes; anything outside this set is treated as an upstream failure
// and surfaced as a generic 500.
//
// Authentication failures deliberately collapse into ErrInvalidCredentials
// so responses never reveal which check failed.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("not authorized")
	ErrForbidden          = errors.New("forbidden")
	ErrTwoFARequired      = errors.New("two-factor authentication required")
	ErrAccountUnderReview = errors.New("account is under review")

	ErrUserExists       = errors.New("user already exists")
	ErrUserNotFound     = errors.New("user not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyAssigned  = errors.New("permission already assigned")
	ErrTwoFARegistered  = errors.New("two-factor authentication already registered")
	ErrTwoFACodeInvalid = errors.New("incorrect two-factor code")

	ErrTimeout  = errors.New("timed out")
	ErrUpstream = errors.New("upstream failure")
)
