package identity

import (
	"context"
	"errors"
	"time"

	"github.com/okian/scorekeep/pkg/metrics"
)

// Instrumented records latency and failures of every provider call.
type Instrumented struct {
	next Provider
}

// Instrument wraps next with metrics.
func Instrument(next Provider) *Instrumented {
	return &Instrumented{next: next}
}

func observe(op string, start time.Time, err error) {
	if errors.Is(err, ErrEmailExists) {
		err = nil
	}
	metrics.RecordCollaboratorCall("identity", op, float64(time.Since(start).Milliseconds()), err)
}

// CreateUser implements Provider.
func (i *Instrumented) CreateUser(ctx context.Context, email, password string) (string, error) {
	start := time.Now()
	uid, err := i.next.CreateUser(ctx, email, password)
	observe("create_user", start, err)
	return uid, err
}

// CustomToken implements Provider.
func (i *Instrumented) CustomToken(ctx context.Context, uid string) (string, error) {
	start := time.Now()
	tok, err := i.next.CustomToken(ctx, uid)
	observe("custom_token", start, err)
	return tok, err
}

// DeleteUser implements Provider.
func (i *Instrumented) DeleteUser(ctx context.Context, uid string) error {
	start := time.Now()
	err := i.next.DeleteUser(ctx, uid)
	observe("delete_user", start, err)
	return err
}
