package worker

import (
	"context"
	"sync"
)

// Pool bounds the number of tasks running at once.
type Pool struct {
	wg      sync.WaitGroup
	workers chan struct{}
}

// NewPool creates a pool allowing size concurrent tasks. A size below
// one falls back to sequential execution.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		workers: make(chan struct{}, size),
	}
}

// Submit runs the task once a worker slot frees up. It blocks while the
// pool is saturated and returns the context error if ctx ends first.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	select {
	case p.workers <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.workers
			p.wg.Done()
		}()
		task()
	}()
	return nil
}

// Wait blocks until every submitted task has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}
