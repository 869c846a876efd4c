package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound        = errors.New("resource not found")
	ErrAlreadyExists   = errors.New("resource already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInternal        = errors.New("internal error")

	// Verification code outcomes
	ErrInvalidCode      = errors.New("verification code does not match")
	ErrRetriesExhausted = errors.New("verification code retries exhausted")
	ErrNoActiveCode     = errors.New("no active verification code")

	// Login outcomes
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("account not verified")

	// Reset token outcomes
	ErrInvalidToken = errors.New("invalid or expired token")

	// Allocator outcomes
	ErrCapacityExhausted = errors.New("code space exhausted")
)
