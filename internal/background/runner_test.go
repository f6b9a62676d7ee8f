package background

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSubmit_RunsAllTasks(t *testing.T) {
	r := NewRunner(zerolog.Nop(), time.Second)
	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		r.Submit("count", func(context.Context) error {
			ran.Add(1)
			return nil
		})
	}
	r.Wait()
	if got := ran.Load(); got != 10 {
		t.Fatalf("ran %d tasks, want 10", got)
	}
}

func TestSubmit_FailureAndPanicAreContained(t *testing.T) {
	r := NewRunner(zerolog.Nop(), time.Second)
	var after atomic.Bool

	r.Submit("fails", func(context.Context) error { return errors.New("boom") })
	r.Submit("panics", func(context.Context) error { panic("boom") })
	r.Submit("after", func(context.Context) error {
		after.Store(true)
		return nil
	})
	r.Wait()

	if !after.Load() {
		t.Fatalf("task submitted after a failing one did not run")
	}
}

func TestSubmit_TaskContextHasDeadline(t *testing.T) {
	r := NewRunner(zerolog.Nop(), 50*time.Millisecond)
	done := make(chan struct{})

	r.Submit("deadline", func(ctx context.Context) error {
		defer close(done)
		if _, ok := ctx.Deadline(); !ok {
			t.Error("task context has no deadline")
		}
		<-ctx.Done()
		return ctx.Err()
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("task context never expired")
	}
	r.Wait()
}

func TestSubmit_DoesNotBlockCaller(t *testing.T) {
	r := NewRunner(zerolog.Nop(), time.Second)
	release := make(chan struct{})

	start := time.Now()
	r.Submit("slow", func(context.Context) error {
		<-release
		return nil
	})
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("Submit blocked for %v", elapsed)
	}
	close(release)
	r.Wait()
}
