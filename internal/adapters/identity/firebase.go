package identity

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
)

// FirebaseProvider backs Provider with Firebase Authentication.
type FirebaseProvider struct {
	client *auth.Client
}

// NewFirebaseProvider wraps an auth client obtained from a Firebase app.
func NewFirebaseProvider(client *auth.Client) *FirebaseProvider {
	return &FirebaseProvider{client: client}
}

// CreateUser creates an email/password identity.
func (p *FirebaseProvider) CreateUser(ctx context.Context, email, password string) (string, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)
	rec, err := p.client.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return "", ErrEmailExists
		}
		return "", fmt.Errorf("firebase create user: %w", err)
	}
	return rec.UID, nil
}

// CustomToken mints a Firebase custom token for uid.
func (p *FirebaseProvider) CustomToken(ctx context.Context, uid string) (string, error) {
	tok, err := p.client.CustomToken(ctx, uid)
	if err != nil {
		return "", fmt.Errorf("firebase custom token: %w", err)
	}
	return tok, nil
}

// DeleteUser removes the identity; an already deleted uid is success.
func (p *FirebaseProvider) DeleteUser(ctx context.Context, uid string) error {
	if err := p.client.DeleteUser(ctx, uid); err != nil {
		if auth.IsUserNotFound(err) {
			return nil
		}
		return fmt.Errorf("firebase delete user: %w", err)
	}
	return nil
}
