package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/baharkarakas/simsforum/internal/metrics"
)

type task func()

// ErrStopped is returned by Do once Stop has been called.
var ErrStopped = errors.New("worker pool stopped")

// Pool runs CPU-bound work (password hashing) on a fixed number of
// goroutines so a burst of logins cannot starve request handling.
type Pool struct {
	wg      sync.WaitGroup
	jobs    chan task
	mu      sync.RWMutex
	stopped bool
}

const queueSize = 1024

func NewPool(n int) *Pool {
	return newPool(n, queueSize)
}

func newPool(n, queue int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{jobs: make(chan task, queue)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				metrics.WorkerQueueDepth.Dec()
				job()
			}
		}()
	}
	return p
}

// Submit queues f without waiting for it to run. It blocks while the
// queue is full.
func (p *Pool) Submit(f task) error {
	return p.enqueue(context.Background(), f)
}

func (p *Pool) enqueue(ctx context.Context, f task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	metrics.WorkerQueueDepth.Inc()
	select {
	case p.jobs <- f:
		return nil
	case <-ctx.Done():
		metrics.WorkerQueueDepth.Dec()
		return ctx.Err()
	}
}

// Do runs fn on the pool and waits for its result. If ctx ends while fn is
// still queued for a slot, fn is never run; if it ends after fn was queued,
// Do returns ctx.Err() and fn still runs in the background.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	if err := p.enqueue(ctx, func() { done <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
