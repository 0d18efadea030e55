package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/scorekeep/internal/adapters/mq/queue"
	"github.com/okian/scorekeep/internal/adapters/mq/worker"
	"github.com/okian/scorekeep/internal/domain/model"
	logging "github.com/okian/scorekeep/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// mockDeleter fails the first failures[uid] calls for a uid.
type mockDeleter struct {
	mu       sync.Mutex
	failures map[string]int
	calls    map[string]int
	deleted  map[string]bool
}

func newMockDeleter() *mockDeleter {
	return &mockDeleter{
		failures: make(map[string]int),
		calls:    make(map[string]int),
		deleted:  make(map[string]bool),
	}
}

func (m *mockDeleter) DeleteUser(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[uid]++
	if m.failures[uid] > 0 {
		m.failures[uid]--
		return errors.New("identity provider unavailable")
	}
	m.deleted[uid] = true
	return nil
}

func (m *mockDeleter) failTimes(uid string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[uid] = n
}

func (m *mockDeleter) state(uid string) (calls int, deleted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[uid], m.deleted[uid]
}

func orphan(uid string) model.OrphanedIdentity {
	return model.OrphanedIdentity{UID: uid, Email: uid + "@example.com", Reason: "account write failed", EnqueuedAt: time.Now()}
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a cleanup worker", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		deleter := newMockDeleter()
		w := worker.NewInMemoryWorker(q, deleter,
			worker.WithName("test-worker"),
			worker.WithMaxAttempts(3),
			worker.WithRetryDelay(time.Millisecond),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When an orphan is queued", func() {
			convey.So(q.Enqueue(ctx, orphan("u1")), convey.ShouldBeTrue)

			convey.Convey("Then the identity is deleted", func() {
				ok := eventually(func() bool { _, deleted := deleter.state("u1"); return deleted })
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When deletion fails transiently", func() {
			deleter.failTimes("u2", 2)
			convey.So(q.Enqueue(ctx, orphan("u2")), convey.ShouldBeTrue)

			convey.Convey("Then it is retried until it succeeds", func() {
				ok := eventually(func() bool { _, deleted := deleter.state("u2"); return deleted })
				convey.So(ok, convey.ShouldBeTrue)
				calls, _ := deleter.state("u2")
				convey.So(calls, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When deletion keeps failing", func() {
			deleter.failTimes("u3", 100)
			convey.So(q.Enqueue(ctx, orphan("u3")), convey.ShouldBeTrue)

			convey.Convey("Then it gives up after the max attempts", func() {
				ok := eventually(func() bool { calls, _ := deleter.state("u3"); return calls == 3 })
				convey.So(ok, convey.ShouldBeTrue)
				time.Sleep(20 * time.Millisecond)
				calls, deleted := deleter.state("u3")
				convey.So(calls, convey.ShouldEqual, 3)
				convey.So(deleted, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer shutdownCancel()

			err := w.Shutdown(shutdownCtx)

			convey.Convey("Then it stops gracefully", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a pool of cleanup workers", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		deleter := newMockDeleter()
		pool := worker.NewPool(3, q, deleter,
			worker.WithMaxAttempts(2),
			worker.WithRetryDelay(time.Millisecond),
		)
		convey.So(pool.Size(), convey.ShouldEqual, 3)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.Convey("When several orphans are queued", func() {
			deleter.failTimes("bad", 10)
			for _, uid := range []string{"a", "b", "c", "bad"} {
				convey.So(q.Enqueue(ctx, orphan(uid)), convey.ShouldBeTrue)
			}

			convey.Convey("Then every outcome is counted", func() {
				ok := eventually(func() bool {
					s := pool.Stats()
					return s.Deleted == 3 && s.Dropped == 1
				})
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(pool.Stats().Retried, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the pool shuts down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()

			err := pool.Shutdown(shutdownCtx)

			convey.Convey("Then the queue is closed and workers exit", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})
}
