// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"coach-connect/internal/domain"
	"coach-connect/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// A very small worker pool for fire-and-forget background tasks.

type Task = func(ctx context.Context) error

var ErrPoolStopped = errors.New("worker pool stopped")

type Pool struct {
	wg     sync.WaitGroup
	mu     sync.RWMutex
	jobs   chan Task
	closed bool
	n      int
	log    *zerolog.Logger
}

// NewPool creates a pool with n workers and a queue of the given size.
// Non-positive values fall back to NumCPU workers and 4 slots per worker.
func NewPool(workers, queue int, log *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queue <= 0 {
		queue = workers * 4
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	l := log.With().Str("component", "worker_pool").Logger()
	return &Pool{jobs: make(chan Task, queue), n: workers, log: &l}
}

// Start launches the workers. Tasks receive ctx, which should outlive the
// requests that submitted them.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for task := range p.jobs {
				p.run(ctx, id, task)
			}
		}(i)
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncWorkerTask("failed")
			p.log.Error().Int("worker", id).Interface("panic", r).Msg("task panicked")
		}
	}()
	if err := task(ctx); err != nil {
		metrics.IncWorkerTask("failed")
		p.log.Warn().Err(err).Int("worker", id).Msg("task error")
		return
	}
	metrics.IncWorkerTask("completed")
}

// Stop rejects new tasks, runs what is already queued and waits for the
// workers to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit queues task without blocking. It fails with domain.ErrQueueFull when
// the queue is saturated.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		metrics.IncWorkerTask("rejected")
		return ErrPoolStopped
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		// drop when saturated to avoid back-pressure on the request path
		metrics.IncWorkerTask("rejected")
		return domain.ErrQueueFull
	}
}
