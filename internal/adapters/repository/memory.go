package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/scorekeep/internal/domain/model"
)

// MemoryStore keeps every record in process memory. Equal scores keep
// insertion order.
type MemoryStore struct {
	mu       sync.RWMutex
	settings settings

	scores       []model.Score
	reservations map[string]string
	users        map[string]model.User
	userOrder    []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		settings:     newSettings(opts),
		reservations: make(map[string]string),
		users:        make(map[string]model.User),
	}
}

// AddScore appends a score stamped with the store clock.
func (s *MemoryStore) AddScore(ctx context.Context, pseudo string, score float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = append(s.scores, model.Score{
		Pseudo:    pseudo,
		Score:     score,
		CreatedAt: s.settings.clock().UTC(),
	})
	return nil
}

// TopScores returns the best limit scores.
func (s *MemoryStore) TopScores(ctx context.Context, limit int) ([]model.Score, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	sorted := make([]model.Score, len(s.scores))
	copy(sorted, s.scores)
	s.mu.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

// PseudoReserved reports whether pseudo has a reservation.
func (s *MemoryStore) PseudoReserved(ctx context.Context, pseudo string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.reservations[pseudo]
	return ok, nil
}

// CreateAccount reserves the pseudo and stores the user under one lock.
func (s *MemoryStore) CreateAccount(ctx context.Context, user model.User) error {
	if !model.ValidPseudo(user.Pseudo) || user.UID == "" {
		return ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[user.Pseudo]; ok {
		return ErrPseudoTaken
	}
	user.CreatedAt = s.settings.clock().UTC()
	s.reservations[user.Pseudo] = user.UID
	if _, exists := s.users[user.UID]; !exists {
		s.userOrder = append(s.userOrder, user.UID)
	}
	s.users[user.UID] = user
	return nil
}

// FindUserByEmail returns the earliest stored user with email.
func (s *MemoryStore) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, uid := range s.userOrder {
		if u := s.users[uid]; u.Email == email {
			return u, nil
		}
	}
	return model.User{}, ErrNotFound
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
