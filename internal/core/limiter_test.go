package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunLimiter_AcquireRelease(t *testing.T) {
	l := NewRunLimiter(2, time.Second)
	ctx := context.Background()

	if got := l.Capacity(); got != 2 {
		t.Fatalf("Capacity = %d, want 2", got)
	}

	for i := 0; i < 2; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}
	if got := l.Active(); got != 2 {
		t.Errorf("Active = %d, want 2", got)
	}

	l.Release()
	l.Release()
	if got := l.Active(); got != 0 {
		t.Errorf("Active after release = %d, want 0", got)
	}
}

func TestRunLimiter_FullTimesOut(t *testing.T) {
	l := NewRunLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer l.Release()

	err := l.Acquire(ctx)
	if !errors.Is(err, ErrTooManyRuns) {
		t.Fatalf("err = %v, want ErrTooManyRuns", err)
	}
	if got := MapError(err).Code; got != "RUN003" {
		t.Errorf("code = %s, want RUN003", got)
	}
}

func TestRunLimiter_ContextCancelled(t *testing.T) {
	l := NewRunLimiter(1, time.Minute)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRunLimiter_Defaults(t *testing.T) {
	l := NewRunLimiter(0, 0)
	if got := l.Capacity(); got != DefaultMaxConcurrentRuns {
		t.Errorf("Capacity = %d, want %d", got, DefaultMaxConcurrentRuns)
	}
	if l.maxWait != DefaultMaxWait {
		t.Errorf("maxWait = %v, want %v", l.maxWait, DefaultMaxWait)
	}
}

func TestRunLimiter_WaitForDrain(t *testing.T) {
	l := NewRunLimiter(1, time.Second)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		l.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.WaitForDrain(ctx); err != nil {
		t.Errorf("WaitForDrain: %v", err)
	}
}
