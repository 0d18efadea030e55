// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/scorekeep/internal/adapters/identity"
	cleanupqueue "github.com/okian/scorekeep/internal/adapters/mq/queue"
	workerpool "github.com/okian/scorekeep/internal/adapters/mq/worker"
	"github.com/okian/scorekeep/internal/adapters/repository"
	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/internal/domain/password"
	"github.com/okian/scorekeep/pkg/logger"
	"github.com/okian/scorekeep/pkg/metrics"
)

const (
	defaultLeaderboardLimit = 20
	compensationTimeout     = 5 * time.Second
	stopTimeout             = 30 * time.Second
)

// Service implements the API dependencies for the leaderboard system.
type Service struct {
	mu sync.RWMutex

	store    repository.Store
	identity identity.Provider
	hasher   *password.Hasher

	cleanupQueue cleanupqueue.Queue
	cleanupPool  *workerpool.Pool

	leaderboardLimit   int
	allowPlaintext     bool
	cleanupWorkers     int
	cleanupQueueSize   int
	cleanupMaxAttempts int
	cleanupRetryDelay  time.Duration
	storeDriver        string
	identityDriver     string

	started bool
	now     func() time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHasher sets the password hasher.
func WithHasher(h *password.Hasher) Option {
	return func(s *Service) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithLeaderboardLimit sets how many scores Leaderboard returns.
func WithLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.leaderboardLimit = n
		}
	}
}

// WithPlaintextPasswords lets Login accept legacy records holding a
// plaintext password and no hash.
func WithPlaintextPasswords(allow bool) Option {
	return func(s *Service) {
		s.allowPlaintext = allow
	}
}

// WithCleanup configures the orphaned identity workers.
func WithCleanup(workers, queueSize, maxAttempts int, retryDelay time.Duration) Option {
	return func(s *Service) {
		if workers > 0 {
			s.cleanupWorkers = workers
		}
		if queueSize > 0 {
			s.cleanupQueueSize = queueSize
		}
		if maxAttempts > 0 {
			s.cleanupMaxAttempts = maxAttempts
		}
		if retryDelay > 0 {
			s.cleanupRetryDelay = retryDelay
		}
	}
}

// WithDriverNames labels the collaborators in GetStats.
func WithDriverNames(store, identity string) Option {
	return func(s *Service) {
		s.storeDriver = store
		s.identityDriver = identity
	}
}

// New constructs a Service over a store and an identity provider.
func New(store repository.Store, provider identity.Provider, opts ...Option) *Service {
	s := &Service{
		store:              store,
		identity:           provider,
		hasher:             password.NewHasher(0),
		leaderboardLimit:   defaultLeaderboardLimit,
		cleanupWorkers:     2,
		cleanupQueueSize:   1024,
		cleanupMaxAttempts: 5,
		cleanupRetryDelay:  2 * time.Second,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start launches the cleanup workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.store == nil || s.identity == nil {
		return errors.New("service: store and identity provider are required")
	}

	q := cleanupqueue.NewInMemoryQueue(cleanupqueue.WithCapacity(s.cleanupQueueSize))
	s.cleanupPool = workerpool.NewPool(s.cleanupWorkers, q, s.identity,
		workerpool.WithMaxAttempts(s.cleanupMaxAttempts),
		workerpool.WithRetryDelay(s.cleanupRetryDelay),
	)
	s.cleanupQueue = q
	s.cleanupPool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.String("store", s.storeDriver),
		logger.String("identity", s.identityDriver),
		logger.Int("cleanupWorkers", s.cleanupWorkers),
		logger.Int("leaderboardLimit", s.leaderboardLimit),
	)
	return nil
}

// Stop drains the cleanup workers. The store and identity provider belong
// to the caller and stay open.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping leaderboard service...")
	if err := s.cleanupPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "cleanup workers did not stop cleanly", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "leaderboard service stopped")
}

// SubmitScore records one score for pseudo.
func (s *Service) SubmitScore(ctx context.Context, pseudo string, score float64) error {
	if pseudo == "" {
		return ErrInvalidInput
	}
	if err := s.store.AddScore(ctx, pseudo, score); err != nil {
		metrics.RecordScoreSubmitted("error")
		return fmt.Errorf("add score: %w", err)
	}
	metrics.RecordScoreSubmitted("ok")
	return nil
}

// Leaderboard returns the best scores, highest first.
func (s *Service) Leaderboard(ctx context.Context) ([]model.Score, error) {
	scores, err := s.store.TopScores(ctx, s.leaderboardLimit)
	if err != nil {
		return nil, fmt.Errorf("top scores: %w", err)
	}
	return scores, nil
}

// Register creates an identity and its account records, and returns a
// session for it. If the account records cannot be written the identity is
// deleted again; a failed deletion is handed to the cleanup workers.
func (s *Service) Register(ctx context.Context, email, pass, pseudo string) (model.Session, error) {
	if email == "" || pass == "" || pseudo == "" {
		return model.Session{}, ErrInvalidInput
	}
	if !model.ValidPseudo(pseudo) {
		return model.Session{}, ErrInvalidPseudo
	}

	reserved, err := s.store.PseudoReserved(ctx, pseudo)
	if err != nil {
		metrics.RecordRegistration("error")
		return model.Session{}, fmt.Errorf("check pseudo: %w", err)
	}
	if reserved {
		metrics.RecordRegistration("pseudo_taken")
		return model.Session{}, ErrPseudoTaken
	}

	hash, err := s.hasher.Hash(pass)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return model.Session{}, ErrPasswordTooLong
		}
		metrics.RecordRegistration("error")
		return model.Session{}, err
	}

	uid, err := s.identity.CreateUser(ctx, email, pass)
	if err != nil {
		if errors.Is(err, identity.ErrEmailExists) {
			metrics.RecordRegistration("email_taken")
			return model.Session{}, ErrEmailTaken
		}
		metrics.RecordRegistration("error")
		return model.Session{}, fmt.Errorf("create identity: %w", err)
	}

	err = s.store.CreateAccount(ctx, model.User{
		UID:          uid,
		Email:        email,
		Pseudo:       pseudo,
		PasswordHash: hash,
	})
	if err != nil {
		s.compensate(ctx, uid, email, err)
		if errors.Is(err, repository.ErrPseudoTaken) {
			metrics.RecordRegistration("pseudo_taken")
			return model.Session{}, ErrPseudoTaken
		}
		metrics.RecordRegistration("error")
		return model.Session{}, fmt.Errorf("create account: %w", err)
	}

	token, err := s.identity.CustomToken(ctx, uid)
	if err != nil {
		// The account stands; the client can log in later.
		metrics.RecordRegistration("token_error")
		return model.Session{}, fmt.Errorf("issue token: %w", err)
	}

	metrics.RecordRegistration("ok")
	s.logger.Info(ctx, "user registered", logger.String("uid", uid), logger.String("pseudo", pseudo))
	return model.Session{UID: uid, Pseudo: pseudo, Token: token}, nil
}

// compensate deletes an identity whose account records were not written.
func (s *Service) compensate(ctx context.Context, uid, email string, cause error) {
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	err := s.identity.DeleteUser(delCtx, uid)
	if err == nil {
		metrics.RecordCompensation("inline")
		s.logger.Info(ctx, "identity rolled back", logger.String("uid", uid), logger.Error(cause))
		return
	}

	job := model.OrphanedIdentity{
		UID:        uid,
		Email:      email,
		Reason:     cause.Error(),
		Attempts:   1,
		EnqueuedAt: s.now().UTC(),
	}
	s.mu.RLock()
	q := s.cleanupQueue
	s.mu.RUnlock()
	if q != nil && q.Enqueue(delCtx, job) {
		metrics.RecordCompensation("queued")
		s.logger.Warn(ctx, "identity rollback deferred to cleanup workers",
			logger.String("uid", uid),
			logger.Error(err),
		)
		return
	}

	metrics.RecordCompensation("lost")
	s.logger.Error(ctx, "orphaned identity could not be rolled back",
		logger.String("uid", uid),
		logger.String("email", email),
		logger.String("cause", cause.Error()),
		logger.Error(err),
	)
}

// Login checks credentials against the stored user record and returns a
// session for it.
func (s *Service) Login(ctx context.Context, email, pass string) (model.Session, error) {
	if email == "" || pass == "" {
		return model.Session{}, ErrInvalidInput
	}

	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordLogin("user_not_found")
			return model.Session{}, ErrUserNotFound
		}
		metrics.RecordLogin("error")
		return model.Session{}, fmt.Errorf("find user: %w", err)
	}

	if err := s.checkPassword(ctx, user, pass); err != nil {
		if errors.Is(err, ErrIncorrectPassword) {
			metrics.RecordLogin("incorrect_password")
		} else {
			metrics.RecordLogin("error")
		}
		return model.Session{}, err
	}

	token, err := s.identity.CustomToken(ctx, user.UID)
	if err != nil {
		metrics.RecordLogin("error")
		return model.Session{}, fmt.Errorf("issue token: %w", err)
	}

	metrics.RecordLogin("ok")
	return model.Session{UID: user.UID, Pseudo: user.Pseudo, Token: token}, nil
}

func (s *Service) checkPassword(ctx context.Context, user model.User, pass string) error {
	if user.PasswordHash != "" {
		err := s.hasher.Verify(user.PasswordHash, pass)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, password.ErrMismatch):
			return ErrIncorrectPassword
		default:
			return fmt.Errorf("verify password: %w", err)
		}
	}

	if user.Password == "" {
		return ErrIncorrectPassword
	}
	if !s.allowPlaintext {
		s.logger.Warn(ctx, "rejecting login against plaintext credential", logger.String("uid", user.UID))
		return ErrIncorrectPassword
	}
	s.logger.Warn(ctx, "login checked against plaintext credential", logger.String("uid", user.UID))
	if !password.EqualPlaintext(user.Password, pass) {
		return ErrIncorrectPassword
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"storeDriver":      s.storeDriver,
		"identityDriver":   s.identityDriver,
		"leaderboardLimit": s.leaderboardLimit,
		"cleanupWorkers":   s.cleanupWorkers,
	}
	if s.started {
		stats["cleanupWorkers"] = s.cleanupPool.Size()
		stats["cleanupQueueLength"] = s.cleanupQueue.Len(context.Background())
		stats["cleanup"] = s.cleanupPool.Stats()
	}
	return stats
}
