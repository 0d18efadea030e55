package api

import "errors"

// Client-facing error messages.
const (
	msgUnauthorized     = "Unauthorized"
	msgInvalidPayload   = "Invalid payload"
	msgMissingFields    = "Missing fields"
	msgInvalidPseudo    = "Invalid pseudo"
	msgPasswordTooLong  = "Password too long"
	msgPseudoTaken      = "Pseudo already used"
	msgEmailTaken       = "Email already used"
	msgCredentials      = "Email and password required"
	msgUserNotFound     = "User not found"
	msgIncorrectPass    = "Incorrect password"
	msgServerError      = "Server error"
	msgTooManyRequests  = "Too many requests, please try again later."
	msgNotFound         = "Not found"
	msgMethodNotAllowed = "Method not allowed"
)

// Sentinel kinds for request decoding.
var (
	ErrBadRequest = errors.New("bad request")
	ErrBodyTooBig = errors.New("request body too large")
)
