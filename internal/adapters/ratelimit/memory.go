package ratelimit

import (
	"context"
	"sync"
	"time"
)

const pruneThreshold = 500

type windowEntry struct {
	slot  int64
	count int
}

// Memory is a fixed-window counter per key held in process memory.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	max     int
	window  time.Duration
	now     func() time.Time
}

// NewMemory allows max requests per key in each window.
func NewMemory(limit int, window time.Duration, opts ...Option) (*Memory, error) {
	if err := validate(limit, window); err != nil {
		return nil, err
	}
	s := newSettings(opts)
	return &Memory{
		entries: make(map[string]*windowEntry),
		max:     limit,
		window:  window,
		now:     s.now,
	}, nil
}

// Name implements Limiter.
func (m *Memory) Name() string { return "memory" }

// Allow implements Limiter.
func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()
	slot := now.UnixNano() / int64(m.window)

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) > pruneThreshold {
		for k, e := range m.entries {
			if e.slot < slot {
				delete(m.entries, k)
			}
		}
	}

	e, ok := m.entries[key]
	if !ok || e.slot != slot {
		e = &windowEntry{slot: slot}
		m.entries[key] = e
	}
	e.count++

	d := Decision{
		Allowed:   e.count <= m.max,
		Limit:     m.max,
		Remaining: max(m.max-e.count, 0),
		Reset:     windowReset(now, m.window),
	}
	return d, nil
}
