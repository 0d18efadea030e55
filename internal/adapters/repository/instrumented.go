package repository

import (
	"context"
	"errors"
	"time"

	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/pkg/metrics"
)

// Instrumented decorates a Store with latency and error metrics.
type Instrumented struct {
	next Store
}

// Instrument wraps next.
func Instrument(next Store) *Instrumented {
	return &Instrumented{next: next}
}

func observe(op string, start time.Time, err error) {
	// Expected outcomes are not collaborator failures.
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrPseudoTaken) {
		err = nil
	}
	metrics.RecordCollaboratorCall("store", op, float64(time.Since(start).Microseconds())/1000, err)
}

func (i *Instrumented) AddScore(ctx context.Context, pseudo string, score float64) error {
	start := time.Now()
	err := i.next.AddScore(ctx, pseudo, score)
	observe("add_score", start, err)
	return err
}

func (i *Instrumented) TopScores(ctx context.Context, limit int) ([]model.Score, error) {
	start := time.Now()
	out, err := i.next.TopScores(ctx, limit)
	observe("top_scores", start, err)
	return out, err
}

func (i *Instrumented) PseudoReserved(ctx context.Context, pseudo string) (bool, error) {
	start := time.Now()
	ok, err := i.next.PseudoReserved(ctx, pseudo)
	observe("pseudo_reserved", start, err)
	return ok, err
}

func (i *Instrumented) CreateAccount(ctx context.Context, user model.User) error {
	start := time.Now()
	err := i.next.CreateAccount(ctx, user)
	observe("create_account", start, err)
	return err
}

func (i *Instrumented) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	start := time.Now()
	u, err := i.next.FindUserByEmail(ctx, email)
	observe("find_user", start, err)
	return u, err
}

func (i *Instrumented) Close() error {
	return i.next.Close()
}
