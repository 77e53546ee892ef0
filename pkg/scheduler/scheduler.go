// Package scheduler runs deferred work. The orchestrator only needs the
// Scheduler contract: hand over a task and learn whether it was accepted.
// An accepted task runs exactly once; a rejected one never runs.
package scheduler

import (
	"context"
	"errors"
)

var (
	// ErrStopped is returned when submitting to a stopped pool.
	ErrStopped = errors.New("scheduler stopped")

	// ErrQueueFull is returned when the task's priority queue has no room.
	ErrQueueFull = errors.New("scheduler queue full")

	// ErrStopTimeout is returned by Stop when workers did not drain in time.
	ErrStopTimeout = errors.New("scheduler stop timed out")
)

// Priority orders tasks. Workers always prefer high priority tasks.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

func (p Priority) String() string {
	if p == PriorityHigh {
		return "high"
	}
	return "normal"
}

// Task is a unit of deferred work.
type Task struct {
	// Name labels the task in logs.
	Name string

	Priority Priority

	// Run performs the work. The context is cancelled when the task's
	// timeout expires or the scheduler gives up on a shutdown.
	Run func(ctx context.Context)
}

// Scheduler accepts tasks for later execution.
type Scheduler interface {
	// Schedule reports whether t was accepted. It never blocks on t.
	Schedule(t Task) bool
}

// Func adapts a function to the Scheduler interface.
type Func func(Task) bool

func (f Func) Schedule(t Task) bool { return f(t) }

// Inline runs every task on the caller's goroutine before returning.
type Inline struct{}

func (Inline) Schedule(t Task) bool {
	if t.Run == nil {
		return false
	}
	t.Run(context.Background())
	return true
}
