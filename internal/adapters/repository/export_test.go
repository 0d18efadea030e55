package repository

import "github.com/okian/scorekeep/internal/domain/model"

// PutUser stores a user record without a reservation, the way records
// provisioned by hand look.
func (s *MemoryStore) PutUser(user model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.UID]; !exists {
		s.userOrder = append(s.userOrder, user.UID)
	}
	s.users[user.UID] = user
}

// Counts returns the number of scores, reservations and users.
func (s *MemoryStore) Counts() (scores, reservations, users int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scores), len(s.reservations), len(s.users)
}
