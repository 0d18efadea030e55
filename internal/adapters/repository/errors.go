package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("record not found")
	ErrPseudoTaken  = errors.New("pseudo already reserved")
	ErrInvalidKey   = errors.New("invalid document key")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
)
