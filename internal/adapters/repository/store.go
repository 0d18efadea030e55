// Package repository implements the document store that holds scores,
// pseudo reservations and user records.
package repository

import (
	"context"

	"github.com/okian/scorekeep/internal/domain/model"
)

// Default collection names, shared by every driver.
const (
	DefaultScoresCollection  = "scores"
	DefaultPseudosCollection = "pseudos"
	DefaultUsersCollection   = "users"
)

// Store provides read/write access to the durable state.
type Store interface {
	// AddScore appends one score record; the store assigns createdAt.
	AddScore(ctx context.Context, pseudo string, score float64) error

	// TopScores returns at most limit records ordered by score descending.
	TopScores(ctx context.Context, limit int) ([]model.Score, error)

	// PseudoReserved reports whether a reservation exists for pseudo.
	PseudoReserved(ctx context.Context, pseudo string) (bool, error)

	// CreateAccount writes the pseudo reservation and the user record as one
	// atomic unit. The reservation write is conditional on the pseudo being
	// free; if it is taken nothing is written and ErrPseudoTaken is returned.
	CreateAccount(ctx context.Context, user model.User) error

	// FindUserByEmail returns the first user record whose email matches.
	// Returns ErrNotFound if there is none.
	FindUserByEmail(ctx context.Context, email string) (model.User, error)

	// Close releases driver resources.
	Close() error
}
