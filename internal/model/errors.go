package model

import "errors"

var (
	// User related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token related errors
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")

	// Expert related errors
	ErrExpertNotFound  = errors.New("expert not found")
	ErrAlreadyInPool   = errors.New("expert is already in the global pool")
	ErrExpertExempt    = errors.New("expert has a verified contact")
	ErrContactNotFound = errors.New("contact not found")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
