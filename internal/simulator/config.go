// Package simulator drives a running scorekeep server with fake players:
// it registers them, logs them in, submits scores concurrently and checks
// that the leaderboard comes back ordered.
package simulator

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL string        // Base URL of the service
	APIKey  string        // Shared secret for /score and /login
	Players int           // Number of players to register
	Scores  int           // Scores submitted per player
	Workers int           // Number of concurrent workers
	Timeout time.Duration // HTTP request timeout
	Seed    uint64        // Faker seed, 0 picks a random one
	Verbose bool          // Log every failed request
}

// Player is a generated account.
type Player struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Pseudo   string `json:"pseudo"`

	UID   string `json:"-"`
	Token string `json:"-"`
}

// Entry is one leaderboard row as served by GET /leaderboard.
type Entry struct {
	Pseudo    string    `json:"pseudo"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

// Stats holds run statistics.
type Stats struct {
	PlayersGenerated  int
	Registered        int
	RegisterConflicts int
	RegisterFailed    int
	LoggedIn          int
	LoginFailed       int
	ScoresSubmitted   int
	ScoresAccepted    int
	ScoresFailed      int
	RateLimited       int
	LeaderboardSize   int
	TopScore          float64
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
