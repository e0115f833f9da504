package core

// limiter.go bounds how many pipeline runs execute at once in serve mode.
//
// Slots are a buffered channel. When every slot is taken, Acquire waits up to
// maxWait before failing with ErrTooManyRuns. WaitForDrain lets shutdown wait
// for in-flight runs.

import (
	"context"
	"errors"
	"time"
)

// ErrTooManyRuns is returned when no run slot frees up within the wait time.
var ErrTooManyRuns = errors.New("too many concurrent runs, please try again later")

// Limiter defaults.
const (
	DefaultMaxConcurrentRuns = 4
	DefaultMaxWait           = 30 * time.Second
)

// RunLimiter is a counting semaphore for pipeline runs.
type RunLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
}

// NewRunLimiter allows at most maxConcurrent simultaneous runs.
// Non-positive arguments fall back to the defaults.
func NewRunLimiter(maxConcurrent int, maxWait time.Duration) *RunLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRuns
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &RunLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot. The caller must call Release exactly once on success.
func (l *RunLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrTooManyRuns
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (l *RunLimiter) Release() {
	<-l.slots
}

// Active returns the number of slots in use.
func (l *RunLimiter) Active() int {
	return len(l.slots)
}

// Capacity returns the maximum number of concurrent runs.
func (l *RunLimiter) Capacity() int {
	return cap(l.slots)
}

// WaitForDrain blocks until no run holds a slot or ctx is done.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.Active() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
