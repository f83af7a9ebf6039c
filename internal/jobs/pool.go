// Package jobs provides the bounded worker pool that embedding batches are
// dispatched to, so compute-heavy ingestion never blocks unrelated requests.
package jobs

import (
	"context"
	"errors"
	"log"
)

// ErrPoolClosed is returned by Do after the pool has been stopped.
var ErrPoolClosed = errors.New("worker pool is closed")

type task struct {
	ctx  context.Context
	run  func(context.Context) error
	done chan error
}

// Pool runs submitted work on a fixed set of worker goroutines with a
// bounded queue. Submission blocks when the queue is full rather than
// growing without bound.
type Pool struct {
	tasks    chan task
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewPool creates a pool with the given worker count and queue depth.
func NewPool(workers, queue int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queue < 0 {
		queue = 0
	}
	return &Pool{
		tasks:    make(chan task, queue),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}, workers),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	workers := cap(p.doneChan)
	log.Printf("worker pool started with %d workers (queue depth %d)", workers, cap(p.tasks))
	for i := 0; i < workers; i++ {
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer func() { p.doneChan <- struct{}{} }()
	for {
		select {
		case <-p.stopChan:
			return
		case t := <-p.tasks:
			if err := t.ctx.Err(); err != nil {
				t.done <- err
				continue
			}
			t.done <- t.run(t.ctx)
		}
	}
}

// Do submits fn and waits for it to finish. It blocks while the queue is
// full, honoring ctx cancellation both before and during execution; a
// cancelled ctx is also observed by fn itself. If the pool stops while the
// task is still queued, Do returns ErrPoolClosed instead of waiting forever.
func (p *Pool) Do(ctx context.Context, fn func(context.Context) error) error {
	t := task{ctx: ctx, run: fn, done: make(chan error, 1)}

	select {
	case p.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopChan:
		return ErrPoolClosed
	}

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopChan:
		return ErrPoolClosed
	}
}

// Stop shuts the pool down and waits for the workers to exit. Queued tasks
// that have not started are abandoned.
func (p *Pool) Stop() {
	close(p.stopChan)
	for i := 0; i < cap(p.doneChan); i++ {
		<-p.doneChan
	}
	log.Println("worker pool shutdown complete")
}
