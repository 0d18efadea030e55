// Package worker deletes orphaned identities handed over by registration.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/scorekeep/internal/adapters/mq/queue"
	"github.com/okian/scorekeep/pkg/logger"
	"github.com/okian/scorekeep/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 2
	defaultMaxAttempts  = 5
	defaultRetryDelay   = 2 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Job is what workers read off the queue.
type Job = queue.Job

// Deleter removes an identity from the identity provider.
type Deleter interface {
	DeleteUser(ctx context.Context, uid string) error
}

// Queue defines how workers receive and return jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
	Enqueue(ctx context.Context, j Job) bool
}

// Worker processes cleanup jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker without waiting for the queue to drain.
	Shutdown(ctx context.Context) error
}

// Stats counts job outcomes across a pool.
type Stats struct {
	Deleted int64 `json:"deleted"`
	Retried int64 `json:"retried"`
	Dropped int64 `json:"dropped"`
}

type counters struct {
	deleted atomic.Int64
	retried atomic.Int64
	dropped atomic.Int64
}

// InMemoryWorker implements Worker for queued cleanup jobs.
type InMemoryWorker struct {
	queue   Queue
	deleter Deleter
	name    string

	maxAttempts int
	retryDelay  time.Duration
	counters    *counters

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, deleter Deleter, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       q,
		deleter:     deleter,
		name:        "cleanup-worker",
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
		counters:    &counters{},
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Warn(ctx, "identity cleanup failed",
					logger.String("uid", j.UID),
					logger.Int("attempts", j.Attempts),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, j Job) error {
	err := w.deleter.DeleteUser(ctx, j.UID)
	if err == nil {
		w.counters.deleted.Add(1)
		metrics.RecordCleanupJob("deleted")
		metrics.RecordCompensation("deferred")
		w.logger.Info(ctx, "orphaned identity deleted",
			logger.String("uid", j.UID),
			logger.Int("attempts", j.Attempts+1),
		)
		return nil
	}

	j.Attempts++
	if j.Attempts >= w.maxAttempts {
		w.drop(ctx, j, "max attempts reached")
		return err
	}

	// Attempt n waits n*retryDelay.
	timer := time.NewTimer(w.retryDelay * time.Duration(j.Attempts))
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		w.drop(ctx, j, "worker stopping")
		return errors.Join(err, ctx.Err())
	case <-w.shutdown:
		w.drop(ctx, j, "worker stopping")
		return err
	}

	if !w.queue.Enqueue(ctx, j) {
		w.drop(ctx, j, "queue unavailable")
		return err
	}
	w.counters.retried.Add(1)
	metrics.RecordCleanupJob("retried")
	return err
}

// drop gives up on a job. The log line is the operator's record of the orphan.
func (w *InMemoryWorker) drop(ctx context.Context, j Job, reason string) {
	w.counters.dropped.Add(1)
	metrics.RecordCleanupJob("dropped")
	w.logger.Error(ctx, "orphaned identity abandoned",
		logger.String("uid", j.UID),
		logger.String("email", j.Email),
		logger.String("origin", j.Reason),
		logger.String("reason", reason),
		logger.Int("attempts", j.Attempts),
	)
}

type closableQueue interface {
	Close() error
	IsClosed() bool
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	counters *counters
	logger   logger.Logger
}

// NewPool creates a new worker pool. opts apply to every worker.
func NewPool(workerCount int, q Queue, deleter Deleter, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		counters: &counters{},
		logger:   logger.Get().Named("cleanup-pool"),
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("cleanup-worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, deleter, workerOpts...)
		w.counters = pool.counters
		pool.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stats returns job outcome counts.
func (p *Pool) Stats() Stats {
	return Stats{
		Deleted: p.counters.deleted.Load(),
		Retried: p.counters.retried.Load(),
		Dropped: p.counters.dropped.Load(),
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Shutdown closes the queue and lets workers drain it. Workers still busy
// when ctx expires are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(closableQueue); ok && !closer.IsClosed() {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	drainCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs []error
	for i, w := range p.workers {
		select {
		case <-w.Done():
			continue
		case <-drainCtx.Done():
		}
		p.logger.Warn(ctx, "worker did not drain in time", logger.Int("worker_id", i))
		stopCtx, stop := context.WithTimeout(context.Background(), time.Second)
		errs = append(errs, w.Shutdown(stopCtx))
		stop()
	}
	metrics.UpdateWorkerCount(0)
	return errors.Join(errs...)
}
