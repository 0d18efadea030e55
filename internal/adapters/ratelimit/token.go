package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const maxIdleAge = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Token is a token bucket per key refilled at max tokens per window.
type Token struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	max     int
	window  time.Duration
	every   rate.Limit
	now     func() time.Time
}

// NewToken allows bursts of max and a sustained max requests per window.
func NewToken(limit int, window time.Duration, opts ...Option) (*Token, error) {
	if err := validate(limit, window); err != nil {
		return nil, err
	}
	s := newSettings(opts)
	return &Token{
		buckets: make(map[string]*bucket),
		max:     limit,
		window:  window,
		every:   rate.Every(window / time.Duration(limit)),
		now:     s.now,
	}, nil
}

// Name implements Limiter.
func (t *Token) Name() string { return "token" }

// Allow implements Limiter.
func (t *Token) Allow(_ context.Context, key string) (Decision, error) {
	now := t.now()

	t.mu.Lock()
	if len(t.buckets) > pruneThreshold {
		cutoff := now.Add(-maxIdleAge)
		for k, b := range t.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(t.buckets, k)
			}
		}
	}
	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(t.every, t.max)}
		t.buckets[key] = b
	}
	b.lastSeen = now
	t.mu.Unlock()

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)

	d := Decision{
		Allowed:   allowed,
		Limit:     t.max,
		Remaining: max(int(math.Floor(tokens)), 0),
	}
	if tokens < 1 {
		d.Reset = time.Duration((1 - tokens) * float64(t.window) / float64(t.max))
	}
	return d, nil
}
