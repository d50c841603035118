package search

import (
	"context"
	"fmt"
	"sync"

	"memedit/pattern"
	"memedit/process"

	"github.com/google/uuid"
)

// Job is a search running on its own goroutine
type Job struct {
	ID uuid.UUID

	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	progress Progress
	result   Result
}

// Start runs Search in the background. It fails with process.ErrSearchInProgress
// when the coordinator is already searching.
func (c *Coordinator) Start(ctx context.Context, target Target, spec pattern.Spec, opts ...Option) (*Job, error) {
	if spec.Len() == 0 {
		return nil, fmt.Errorf("%w: empty pattern", process.ErrInvalidPattern)
	}
	if err := c.begin(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	job := &Job{
		ID:     uuid.New(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	o := buildOptions(opts)
	callback := o.progress
	o.progress = func(p Progress) {
		job.mu.Lock()
		job.progress = p
		job.mu.Unlock()
		callback(p)
	}

	go func() {
		defer cancel()
		res := c.run(ctx, job.ID, target, spec, o)
		c.finish(res)

		job.mu.Lock()
		job.result = res
		job.mu.Unlock()
		close(job.done)
	}()

	return job, nil
}

// Done is closed once the search finished or was cancelled
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the search ends and returns its result
func (j *Job) Wait() Result {
	<-j.done
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Cancel asks the search to stop at the next region boundary
func (j *Job) Cancel() {
	j.cancel()
}

// Progress returns the latest progress report
func (j *Job) Progress() Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}
