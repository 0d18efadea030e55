package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/scorekeep/internal/adapters/ratelimit"
	"github.com/okian/scorekeep/pkg/logger"
	"github.com/okian/scorekeep/pkg/metrics"
)

// RateLimitMiddleware rejects clients that exceed the limiter quota with 429.
// The client key is the remote IP; chi's RealIP middleware rewrites
// RemoteAddr when the proxy headers are trusted. A limiter backend failure
// lets the request through.
func RateLimitMiddleware(limiter ratelimit.Limiter, l logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)

			d, err := limiter.Allow(r.Context(), key)
			if err != nil {
				metrics.RecordRateLimiterError()
				l.Warn(r.Context(), "rate limiter unavailable, admitting request",
					logger.String("driver", limiter.Name()),
					logger.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			reset := seconds(d.Reset)
			h := w.Header()
			h.Set("RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("RateLimit-Reset", strconv.Itoa(reset))

			if !d.Allowed {
				metrics.RecordRateLimited(limiter.Name())
				h.Set("Retry-After", strconv.Itoa(reset))
				writeError(w, http.StatusTooManyRequests, msgTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func seconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
