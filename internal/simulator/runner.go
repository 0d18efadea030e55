package simulator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/scorekeep/pkg/logger"
)

// ErrVerification reports a leaderboard that contradicts what was submitted.
var ErrVerification = errors.New("leaderboard verification failed")

type submission struct {
	pseudo string
	score  float64
}

// counters are shared by workers of one phase.
type counters struct {
	ok, conflict, limited, failed atomic.Int64
}

func (c *counters) record(err error) {
	var se *StatusError
	switch {
	case err == nil:
		c.ok.Add(1)
	case errors.As(err, &se) && se.Status == http.StatusConflict:
		c.conflict.Add(1)
	case errors.As(err, &se) && se.Status == http.StatusTooManyRequests:
		c.limited.Add(1)
	default:
		c.failed.Add(1)
	}
}

// Run executes a complete simulation and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("simulator")
	stats := &Stats{StartTime: time.Now()}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	log.Info(ctx, "starting scorekeep simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("scoresPerPlayer", cfg.Scores),
		logger.Int("workers", cfg.Workers),
		logger.String("timeout", cfg.Timeout.String()))

	client := NewClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate players and their scores
	gen := NewGenerator(cfg.Seed)
	players := gen.Players(cfg.Players)
	stats.PlayersGenerated = len(players)

	// Step 3: Register players
	var reg counters
	forEach(ctx, cfg.Workers, len(players), func(i int) {
		err := client.Register(ctx, &players[i])
		reg.record(err)
		if err != nil && cfg.Verbose {
			log.Warn(ctx, "register failed", logger.String("pseudo", players[i].Pseudo), logger.Error(err))
		}
	})
	stats.Registered = int(reg.ok.Load())
	stats.RegisterConflicts = int(reg.conflict.Load())
	stats.RegisterFailed = int(reg.failed.Load())

	registered := make([]Player, 0, len(players))
	for _, p := range players {
		if p.UID != "" {
			registered = append(registered, p)
		}
	}

	// Step 4: Log registered players back in
	var login counters
	forEach(ctx, cfg.Workers, len(registered), func(i int) {
		pseudo, err := client.Login(ctx, registered[i])
		if err == nil && pseudo != registered[i].Pseudo {
			err = fmt.Errorf("login returned pseudo %q, want %q", pseudo, registered[i].Pseudo)
		}
		login.record(err)
		if err != nil && cfg.Verbose {
			log.Warn(ctx, "login failed", logger.String("email", registered[i].Email), logger.Error(err))
		}
	})
	stats.LoggedIn = int(login.ok.Load())
	stats.LoginFailed = int(login.failed.Load() + login.conflict.Load())

	// Step 5: Submit scores concurrently
	subs := make([]submission, 0, len(registered)*cfg.Scores)
	for _, p := range registered {
		for range cfg.Scores {
			subs = append(subs, submission{pseudo: p.Pseudo, score: gen.Score()})
		}
	}
	var sc counters
	forEach(ctx, cfg.Workers, len(subs), func(i int) {
		err := client.SubmitScore(ctx, subs[i].pseudo, subs[i].score)
		sc.record(err)
		if err != nil && cfg.Verbose {
			log.Warn(ctx, "score submission failed", logger.String("pseudo", subs[i].pseudo), logger.Error(err))
		}
	})
	stats.ScoresSubmitted = len(subs)
	stats.ScoresAccepted = int(sc.ok.Load())
	stats.ScoresFailed = int(sc.failed.Load() + sc.conflict.Load())
	stats.RateLimited = int(reg.limited.Load() + login.limited.Load() + sc.limited.Load())

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("simulation interrupted: %w", err)
	}

	// Step 6: Fetch and verify the leaderboard
	board, err := client.Leaderboard(ctx)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.LeaderboardSize = len(board)
	if len(board) > 0 {
		stats.TopScore = board[0].Score
	}
	scores := make([]float64, len(subs))
	for i, s := range subs {
		scores[i] = s.score
	}
	verifyErr := Verify(board, scores, stats.ScoresAccepted == len(subs))

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if verifyErr != nil {
		return stats, verifyErr
	}
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

// forEach runs fn for indexes [0, n) on a pool of workers.
func forEach(ctx context.Context, workers, n int, fn func(int)) {
	jobs := make(chan int, workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				fn(i)
			}
		}()
	}

	defer wg.Wait()
	defer close(jobs)
	for i := range n {
		select {
		case <-ctx.Done():
			return
		case jobs <- i:
		}
	}
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var scoresPerSecond float64
	if stats.Duration > 0 {
		scoresPerSecond = float64(stats.ScoresSubmitted) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("playersGenerated", stats.PlayersGenerated),
		logger.Int("registered", stats.Registered),
		logger.Int("registerConflicts", stats.RegisterConflicts),
		logger.Int("registerFailed", stats.RegisterFailed),
		logger.Int("loggedIn", stats.LoggedIn),
		logger.Int("loginFailed", stats.LoginFailed),
		logger.Int("scoresSubmitted", stats.ScoresSubmitted),
		logger.Int("scoresAccepted", stats.ScoresAccepted),
		logger.Int("scoresFailed", stats.ScoresFailed),
		logger.Int("rateLimited", stats.RateLimited),
		logger.Int("leaderboardSize", stats.LeaderboardSize),
		logger.Float64("topScore", stats.TopScore),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("scoresPerSecond", scoresPerSecond))
}
