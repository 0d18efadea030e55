// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Store drivers.
const (
	StoreFirestore = "firestore"
	StoreMongo     = "mongo"
	StoreMemory    = "memory"
)

// Identity drivers.
const (
	IdentityFirebase = "firebase"
	IdentityLocal    = "local"
)

// Rate limit drivers.
const (
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
	RateLimitToken  = "token"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogJSON switches log output to JSON lines.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":3000".
	Addr string `koanf:"addr"`

	// APIKey is the shared secret clients present on /score and /login.
	APIKey string `koanf:"api_key"`

	// LeaderboardLimit is the number of rows GET /leaderboard returns.
	LeaderboardLimit int `koanf:"leaderboard_limit"`

	StoreDriver    string `koanf:"store_driver"`
	IdentityDriver string `koanf:"identity_driver"`

	FirebaseCredentialsFile string `koanf:"firebase_credentials_file"`
	FirebaseProjectID       string `koanf:"firebase_project_id"`

	MongoURI      string `koanf:"mongo_uri"`
	MongoDatabase string `koanf:"mongo_database"`

	LocalTokenSecret string        `koanf:"local_token_secret"`
	LocalTokenTTL    time.Duration `koanf:"local_token_ttl"`
	LocalTokenIssuer string        `koanf:"local_token_issuer"`

	// AllowPlaintextPasswords lets login accept user records that carry a
	// plaintext password field and no hash.
	AllowPlaintextPasswords bool `koanf:"allow_plaintext_passwords"`

	RateLimitDriver string        `koanf:"rate_limit_driver"`
	RateLimitMax    int           `koanf:"rate_limit_max"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// TrustProxy derives the client address from X-Forwarded-For / X-Real-IP.
	TrustProxy bool `koanf:"trust_proxy"`

	// CORSOrigins is a comma separated list of allowed origins.
	CORSOrigins string `koanf:"cors_origins"`

	CleanupWorkers     int           `koanf:"cleanup_workers"`
	CleanupQueueSize   int           `koanf:"cleanup_queue_size"`
	CleanupMaxAttempts int           `koanf:"cleanup_max_attempts"`
	CleanupRetryDelay  time.Duration `koanf:"cleanup_retry_delay"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		Addr:                    ":3000",
		LeaderboardLimit:        20,
		StoreDriver:             StoreFirestore,
		IdentityDriver:          IdentityFirebase,
		FirebaseCredentialsFile: "serviceAccountKey.json",
		MongoURI:                "mongodb://localhost:27017",
		MongoDatabase:           "scorekeep",
		LocalTokenTTL:           time.Hour,
		LocalTokenIssuer:        "scorekeep",
		RateLimitDriver:         RateLimitMemory,
		RateLimitMax:            30,
		RateLimitWindow:         time.Minute,
		RedisAddr:               "localhost:6379",
		CORSOrigins:             "*",
		CleanupWorkers:          2,
		CleanupQueueSize:        1024,
		CleanupMaxAttempts:      5,
		CleanupRetryDelay:       2 * time.Second,
	}
}

// Origins splits CORSOrigins into a trimmed list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.APIKey == "":
		return fmt.Errorf("%w: api_key must be set", ErrInvalidConfig)
	case c.LeaderboardLimit < 1:
		return fmt.Errorf("%w: leaderboard_limit must be positive", ErrInvalidConfig)
	case c.RateLimitMax < 1 || c.RateLimitWindow <= 0:
		return fmt.Errorf("%w: rate_limit_max and rate_limit_window must be positive", ErrInvalidConfig)
	}

	switch c.StoreDriver {
	case StoreFirestore, StoreMemory:
	case StoreMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return fmt.Errorf("%w: mongo_uri and mongo_database are required for the mongo store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}

	switch c.IdentityDriver {
	case IdentityFirebase:
	case IdentityLocal:
		if c.LocalTokenSecret == "" {
			return fmt.Errorf("%w: local_token_secret is required for the local identity provider", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown identity_driver %q", ErrInvalidConfig, c.IdentityDriver)
	}

	switch c.RateLimitDriver {
	case RateLimitMemory, RateLimitToken:
	case RateLimitRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis rate limiter", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown rate_limit_driver %q", ErrInvalidConfig, c.RateLimitDriver)
	}
	return nil
}

// NeedsFirebase reports whether any collaborator is backed by Firebase.
func (c *Config) NeedsFirebase() bool {
	return c.StoreDriver == StoreFirestore || c.IdentityDriver == IdentityFirebase
}
