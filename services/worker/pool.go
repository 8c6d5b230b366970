// Package workersvc runs queued import jobs on a bounded set of goroutines.
package workersvc

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core"
)

var ErrPoolStopped = errors.New("worker pool stopped")

type Task func(ctx context.Context) error

type Pool struct {
	workers int
	tasks   chan Task
	wg      sync.WaitGroup
	logger  core.Logger

	mu      sync.RWMutex
	stopped bool
}

func NewPool(workers int, logger core.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		workers: workers,
		tasks:   make(chan Task, workers*2),
		logger:  logger,
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.logger.Info(fmt.Sprintf("workersvc: starting %d workers", p.workers))
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(ctx, i)
	}
}

// Submit blocks until a worker slot frees up or ctx is done.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop lets the workers drain the submitted tasks and waits for them.
// Tasks still buffered once the Start context is done run with that canceled context.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.tasks)
	}
	p.mu.Unlock()
	p.wg.Wait()
	p.logger.Info("workersvc: pool stopped")
}

func (p *Pool) work(ctx context.Context, id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		if err := task(ctx); err != nil {
			p.logger.Error(fmt.Sprintf("workersvc: worker %d: %v", id, err), err)
		}
	}
}
