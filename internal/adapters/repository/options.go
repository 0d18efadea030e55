package repository

import "time"

type settings struct {
	scores  string
	pseudos string
	users   string
	clock   func() time.Time
}

func newSettings(opts []Option) settings {
	s := settings{
		scores:  DefaultScoresCollection,
		pseudos: DefaultPseudosCollection,
		users:   DefaultUsersCollection,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option applies a configuration option to a store driver.
type Option func(*settings)

// WithCollections overrides the collection names. Empty names keep the default.
func WithCollections(scores, pseudos, users string) Option {
	return func(s *settings) {
		if scores != "" {
			s.scores = scores
		}
		if pseudos != "" {
			s.pseudos = pseudos
		}
		if users != "" {
			s.users = users
		}
	}
}

// WithClock sets the time source used for createdAt by drivers that have no
// server-side timestamp.
func WithClock(clock func() time.Time) Option {
	return func(s *settings) {
		if clock != nil {
			s.clock = clock
		}
	}
}
