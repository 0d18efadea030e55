package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/scorekeep/internal/domain/model"
)

func job(uid string) model.OrphanedIdentity {
	return model.OrphanedIdentity{UID: uid, Email: uid + "@example.com", Reason: "account write failed"}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, job("u1")) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.UID != "u1" {
		t.Errorf("expected u1, got %v", got.UID)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, job("u1")) || !q.Enqueue(ctx, job("u2")) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, job("u3")) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const producers, perProducer = 10, 50

	var seen sync.Map
	var consumed sync.WaitGroup
	consumed.Add(producers * perProducer)
	for i := 0; i < 4; i++ {
		go func() {
			for j := range q.Dequeue(ctx) {
				if _, dup := seen.LoadOrStore(j.UID, true); dup {
					t.Errorf("job %s delivered twice", j.UID)
				}
				consumed.Done()
			}
		}()
	}

	var produced sync.WaitGroup
	for p := 0; p < producers; p++ {
		produced.Add(1)
		go func(p int) {
			defer produced.Done()
			for n := 0; n < perProducer; n++ {
				for !q.Enqueue(ctx, job(fmt.Sprintf("u%d-%d", p, n))) {
					time.Sleep(time.Millisecond)
				}
			}
		}(p)
	}
	produced.Wait()

	done := make(chan struct{})
	go func() { consumed.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for consumers")
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, job("u1")) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, job("u2")) {
		t.Error("expected enqueue to fail after closing")
	}

	// Buffered jobs still drain, then the channel closes.
	ch := q.Dequeue(ctx)
	timeout := time.After(time.Second)
	var drained []string
	for {
		select {
		case j, ok := <-ch:
			if !ok {
				if len(drained) != 1 || drained[0] != "u1" {
					t.Errorf("expected [u1] drained, got %v", drained)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
			drained = append(drained, j.UID)
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
}
