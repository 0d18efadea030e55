package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/okian/scorekeep/internal/simulator"
	"github.com/okian/scorekeep/pkg/logger"
)

// Default configuration constants.
const (
	defaultPlayers = 50
	defaultScores  = 20
	defaultWorkers = 2 // multiplier for runtime.NumCPU()
	defaultTimeout = 10 * time.Second
	runTimeout     = 10 * time.Minute
)

func main() {
	app := &cli.App{
		Name:  "score-sim",
		Usage: "drive a scorekeep server with simulated players",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:3000", Usage: "base URL of the service", EnvVars: []string{"SCOREKEEP_URL"}},
			&cli.DurationFlag{Name: "timeout", Value: defaultTimeout, Usage: "HTTP request timeout"},
			&cli.BoolFlag{Name: "json", Usage: "log JSON lines"},
		},
		Before: func(c *cli.Context) error {
			return logger.Init(logger.WithJSON(c.Bool("json")))
		},
		Commands: []*cli.Command{
			runCommand(),
			leaderboardCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		os.Stderr.WriteString("score-sim: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "register players, log them in, submit scores and verify the leaderboard",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "players", Value: defaultPlayers, Usage: "number of players to register"},
			&cli.IntFlag{Name: "scores", Value: defaultScores, Usage: "scores submitted per player"},
			&cli.IntFlag{Name: "workers", Value: runtime.NumCPU() * defaultWorkers, Usage: "number of concurrent workers"},
			&cli.StringFlag{Name: "api-key", Usage: "shared API key", EnvVars: []string{"SCOREKEEP_API_KEY", "API_KEY"}},
			&cli.Uint64Flag{Name: "seed", Usage: "faker seed, 0 is random"},
			&cli.BoolFlag{Name: "verbose", Usage: "log every failed request"},
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithTimeout(c.Context, runTimeout)
			defer cancel()

			_, err := simulator.Run(ctx, &simulator.Config{
				BaseURL: c.String("url"),
				APIKey:  c.String("api-key"),
				Players: c.Int("players"),
				Scores:  c.Int("scores"),
				Workers: c.Int("workers"),
				Timeout: c.Duration("timeout"),
				Seed:    c.Uint64("seed"),
				Verbose: c.Bool("verbose"),
			})
			return err
		},
	}
}

func leaderboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "leaderboard",
		Usage: "print the current leaderboard",
		Action: func(c *cli.Context) error {
			client := simulator.NewClient(c.String("url"), "", c.Duration("timeout"))
			board, err := client.Leaderboard(c.Context)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tPSEUDO\tSCORE\tCREATED")
			for i, e := range board {
				fmt.Fprintf(w, "%d\t%s\t%.2f\t%s\n", i+1, e.Pseudo, e.Score, e.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}
