package service

import "errors"

// Sentinel errors returned by Service operations. Handlers map them to
// client-facing statuses; anything else is a server error.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidPseudo     = errors.New("invalid pseudo")
	ErrPasswordTooLong   = errors.New("password too long")
	ErrPseudoTaken       = errors.New("pseudo already used")
	ErrEmailTaken        = errors.New("email already used")
	ErrUserNotFound      = errors.New("user not found")
	ErrIncorrectPassword = errors.New("incorrect password")
)
