package api

import (
	"github.com/okian/scorekeep/internal/adapters/ratelimit"
	"github.com/okian/scorekeep/pkg/logger"
)

type settings struct {
	apiKey     string
	limiter    ratelimit.Limiter
	trustProxy bool
	origins    []string
	logger     logger.Logger
}

// Option configures the Server.
type Option func(*settings)

// WithAPIKey sets the shared secret required on /score and /login.
func WithAPIKey(key string) Option {
	return func(s *settings) { s.apiKey = key }
}

// WithRateLimiter puts l in front of the business routes.
func WithRateLimiter(l ratelimit.Limiter) Option {
	return func(s *settings) { s.limiter = l }
}

// WithTrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
func WithTrustProxy(trust bool) Option {
	return func(s *settings) { s.trustProxy = trust }
}

// WithCORSOrigins sets the allowed origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *settings) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithLogger sets the logger used by handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
