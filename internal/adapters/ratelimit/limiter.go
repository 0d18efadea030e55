// Package ratelimit bounds request rates per client key.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidQuota is returned when max or window is not positive.
var ErrInvalidQuota = errors.New("rate limit quota must be positive")

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// Reset is the time until the quota is replenished.
	Reset time.Duration
}

// Limiter admits or rejects one request for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	// Name identifies the driver in logs and metrics.
	Name() string
}

type settings struct {
	now    func() time.Time
	prefix string
}

// Option configures a limiter.
type Option func(*settings)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPrefix sets the key prefix used by the redis driver.
func WithPrefix(prefix string) Option {
	return func(s *settings) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{now: time.Now, prefix: "scorekeep:ratelimit:"}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func validate(limit int, window time.Duration) error {
	if limit < 1 || window <= 0 {
		return ErrInvalidQuota
	}
	return nil
}

// windowReset returns the time left in the fixed window containing now.
func windowReset(now time.Time, window time.Duration) time.Duration {
	return window - time.Duration(now.UnixNano()%int64(window))
}
