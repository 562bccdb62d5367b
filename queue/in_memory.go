package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentforge/logging"
)

// InMemoryDispatcherOptions configure an InMemoryDispatcher.
type InMemoryDispatcherOptions struct {
	Logger logging.Logger
	// Workers is the number of concurrent job runners.
	Workers int
	// Buffer is the queue channel capacity before Dispatch blocks.
	Buffer int
}

// InMemoryDispatcher runs jobs on a process-local worker pool. Delay, Tries
// and Timeout are honored per job. Jobs do not survive a process restart;
// use an external broker when durability matters.
type InMemoryDispatcher struct {
	handler Handler
	logger  logging.Logger

	jobs chan Job
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

var _ Dispatcher = (*InMemoryDispatcher)(nil)

// NewInMemoryDispatcher starts the worker pool with the given handler.
func NewInMemoryDispatcher(handler Handler, optFns ...func(o *InMemoryDispatcherOptions)) *InMemoryDispatcher {
	opts := InMemoryDispatcherOptions{
		Logger:  logging.NoOpLogger{},
		Workers: 4,
		Buffer:  64,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	d := &InMemoryDispatcher{
		handler: handler,
		logger:  opts.Logger,
		jobs:    make(chan Job, opts.Buffer),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Dispatch implements Dispatcher.
func (d *InMemoryDispatcher) Dispatch(ctx context.Context, job Job) error {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return fmt.Errorf("dispatcher is closed")
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	if job.Queue == "" {
		job.Queue = DefaultQueue
	}
	select {
	case d.jobs <- job:
		d.logger.Debug("job dispatched", "job_id", job.ID, "queue", job.Queue, "agent", job.AgentName)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements Dispatcher.
func (d *InMemoryDispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()
	close(d.jobs)
	d.wg.Wait()
	return nil
}

func (d *InMemoryDispatcher) worker() {
	defer d.wg.Done()
	for job := range d.jobs {
		d.run(job)
	}
}

// run executes one job with delay, retry and per-attempt timeout semantics.
func (d *InMemoryDispatcher) run(job Job) {
	if job.Delay > 0 {
		time.Sleep(job.Delay)
	}
	tries := job.Tries
	if tries <= 0 {
		tries = DefaultTries
	}
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var err error
	for attempt := 1; attempt <= tries; attempt++ {
		err = d.attempt(job, timeout)
		if err == nil {
			d.logger.Debug("job completed", "job_id", job.ID, "queue", job.Queue, "attempt", attempt)
			return
		}
		d.logger.Warn("job attempt failed", "job_id", job.ID, "queue", job.Queue, "attempt", attempt, "tries", tries, "error", err)
	}
	d.logger.Error("job failed permanently", "job_id", job.ID, "queue", job.Queue, "tries", tries, "error", err)
}

func (d *InMemoryDispatcher) attempt(job Job, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return d.handler(ctx, job)
}
