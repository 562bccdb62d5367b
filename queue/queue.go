// Package queue provides background execution for agent turns: a Dispatcher
// accepts jobs and acknowledges immediately, a worker pool runs them with
// per-job delay, retry and timeout semantics. The in-memory dispatcher is the
// default; the interface leaves room for external brokers.
package queue

import (
	"context"
	"time"
)

// DefaultQueue is the queue name used when a job does not set one.
const DefaultQueue = "default"

// Default retry and timeout behavior for jobs that do not set their own.
const (
	DefaultTries   = 1
	DefaultTimeout = 5 * time.Minute
)

// Job is one queued agent execution.
type Job struct {
	ID        string
	Queue     string
	AgentName string
	SessionID string
	UserID    string
	Input     string
	// State carries extra context state merged into the turn before it runs.
	State map[string]any

	// Delay postpones the first execution attempt.
	Delay time.Duration
	// Tries is the maximum number of attempts (failures trigger retries
	// until exhausted). Zero means DefaultTries.
	Tries int
	// Timeout bounds a single attempt. Zero means DefaultTimeout.
	Timeout time.Duration

	EnqueuedAt time.Time
}

// Receipt acknowledges a dispatched job. It is what a queued execution
// returns to the caller in place of an agent response.
type Receipt struct {
	JobDispatched bool   `json:"job_dispatched"`
	JobID         string `json:"job_id"`
	Queue         string `json:"queue"`
	Agent         string `json:"agent"`
	Mode          string `json:"mode"`
}

// Handler executes one job attempt.
type Handler func(ctx context.Context, job Job) error

// Dispatcher accepts jobs for background execution.
type Dispatcher interface {
	// Dispatch enqueues the job and returns once it is accepted.
	Dispatch(ctx context.Context, job Job) error

	// Close stops accepting jobs and waits for in-flight work to finish.
	Close() error
}
