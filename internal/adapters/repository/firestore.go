package repository

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/okian/scorekeep/internal/domain/model"
)

// FirestoreStore keeps records in Cloud Firestore. createdAt fields are
// Firestore server timestamps.
type FirestoreStore struct {
	client   *firestore.Client
	settings settings
}

// NewFirestoreStore wraps an existing Firestore client.
func NewFirestoreStore(client *firestore.Client, opts ...Option) *FirestoreStore {
	return &FirestoreStore{client: client, settings: newSettings(opts)}
}

// AddScore adds a document with an auto-generated id to the scores collection.
func (s *FirestoreStore) AddScore(ctx context.Context, pseudo string, score float64) error {
	_, _, err := s.client.Collection(s.settings.scores).Add(ctx, map[string]interface{}{
		"pseudo":    pseudo,
		"score":     score,
		"createdAt": firestore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("firestore add score: %w", err)
	}
	return nil
}

// TopScores runs orderBy(score desc).limit(n) on the scores collection.
func (s *FirestoreStore) TopScores(ctx context.Context, limit int) ([]model.Score, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	docs, err := s.client.Collection(s.settings.scores).
		OrderBy("score", firestore.Desc).
		Limit(limit).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore top scores: %w", err)
	}
	out := make([]model.Score, 0, len(docs))
	for _, d := range docs {
		var sc model.Score
		if err := d.DataTo(&sc); err != nil {
			return nil, fmt.Errorf("firestore decode score %s: %w", d.Ref.ID, err)
		}
		out = append(out, sc)
	}
	return out, nil
}

// PseudoReserved looks up the reservation document keyed by pseudo.
func (s *FirestoreStore) PseudoReserved(ctx context.Context, pseudo string) (bool, error) {
	ref := s.client.Collection(s.settings.pseudos).Doc(pseudo)
	if ref == nil {
		return false, ErrInvalidKey
	}
	_, err := ref.Get(ctx)
	switch {
	case err == nil:
		return true, nil
	case status.Code(err) == codes.NotFound:
		return false, nil
	default:
		return false, fmt.Errorf("firestore get reservation: %w", err)
	}
}

// CreateAccount reads the reservation and writes both documents inside one
// transaction, so a concurrent registration for the same pseudo either sees
// the reservation or aborts at commit.
func (s *FirestoreStore) CreateAccount(ctx context.Context, user model.User) error {
	pseudoRef := s.client.Collection(s.settings.pseudos).Doc(user.Pseudo)
	userRef := s.client.Collection(s.settings.users).Doc(user.UID)
	if pseudoRef == nil || userRef == nil {
		return ErrInvalidKey
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		_, err := tx.Get(pseudoRef)
		switch {
		case err == nil:
			return ErrPseudoTaken
		case status.Code(err) != codes.NotFound:
			return err
		}
		if err := tx.Create(pseudoRef, map[string]interface{}{"uid": user.UID}); err != nil {
			return err
		}
		return tx.Set(userRef, userFields(user))
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrPseudoTaken), status.Code(err) == codes.AlreadyExists:
		return ErrPseudoTaken
	default:
		return fmt.Errorf("firestore create account: %w", err)
	}
}

// FindUserByEmail runs where(email == x).limit(1) on the users collection.
func (s *FirestoreStore) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	docs, err := s.client.Collection(s.settings.users).
		Where("email", "==", email).
		Limit(1).
		Documents(ctx).
		GetAll()
	if err != nil {
		return model.User{}, fmt.Errorf("firestore find user: %w", err)
	}
	if len(docs) == 0 {
		return model.User{}, ErrNotFound
	}
	var u model.User
	if err := docs[0].DataTo(&u); err != nil {
		return model.User{}, fmt.Errorf("firestore decode user %s: %w", docs[0].Ref.ID, err)
	}
	u.UID = docs[0].Ref.ID
	return u, nil
}

// Close closes the underlying client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func userFields(u model.User) map[string]interface{} {
	fields := map[string]interface{}{
		"email":     u.Email,
		"pseudo":    u.Pseudo,
		"createdAt": firestore.ServerTimestamp,
	}
	if u.PasswordHash != "" {
		fields["passwordHash"] = u.PasswordHash
	}
	return fields
}
