// Package memory provides queue implementations for local fan-out.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jobsight/jobtracker/internal/jobs"
)

// ErrClosed is returned by Dequeue once the queue is drained and closed.
var ErrClosed = errors.New("queue closed")

// Queue is a bounded in-memory site task queue with context-aware
// operations.
type Queue struct {
	ch      chan jobs.SiteTask
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan jobs.SiteTask, capacity),
	}
}

// Enqueue pushes a task into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, task jobs.SiteTask) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- task:
		return nil
	}
}

// Dequeue pops the next task, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (jobs.SiteTask, error) {
	select {
	case <-ctx.Done():
		return jobs.SiteTask{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case task, ok := <-q.ch:
		if !ok {
			return jobs.SiteTask{}, ErrClosed
		}
		return task, nil
	}
}

// Close closes the underlying channel; queued tasks drain first.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
