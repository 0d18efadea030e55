// Package identity adapts identity providers that own credentials and mint
// client session tokens.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrEmailExists is returned by CreateUser when the email is registered.
	ErrEmailExists = errors.New("email already registered")
	// ErrNotFound is returned for unknown uids.
	ErrNotFound = errors.New("identity not found")
)

// Provider is the identity collaborator used by registration and login.
type Provider interface {
	// CreateUser creates an identity and returns its uid.
	CreateUser(ctx context.Context, email, password string) (string, error)
	// CustomToken mints a sign-in token for uid.
	CustomToken(ctx context.Context, uid string) (string, error)
	// DeleteUser removes an identity. Deleting an unknown uid is not an error.
	DeleteUser(ctx context.Context, uid string) error
}
