// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"hosted-checkout/internal/domain/ports/adapter"
	"hosted-checkout/internal/infra/metrics"
)

var _ adapter.TaskRunner = (*Pool)(nil)

var (
	ErrQueueFull   = errors.New("worker queue full")
	ErrPoolStopped = errors.New("worker pool stopped")
)

// Task is a unit of detached background work.
type Task = func(ctx context.Context) error

// Pool runs submitted tasks on a fixed number of goroutines. Submit never
// blocks: when the queue is full the task is dropped and ErrQueueFull returned.
type Pool struct {
	wg     sync.WaitGroup
	jobs   chan Task
	n      int
	log    zerolog.Logger
	mu     sync.RWMutex
	closed bool
	cancel context.CancelFunc
}

func NewPool(workers, queue int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queue <= 0 {
		queue = workers * 4
	}
	return &Pool{
		jobs: make(chan Task, queue),
		n:    workers,
		log:  logger.With().Str("component", "worker_pool").Logger(),
	}
}

// Start launches the workers. Tasks run under a context that keeps ctx's
// values but not its cancellation, so work queued during shutdown still gets
// delivered. Shutdown decides how long that may take.
func (p *Pool) Start(ctx context.Context) {
	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for task := range p.jobs {
				p.run(taskCtx, id, task)
			}
		}(i)
	}
	p.log.Info().Int("workers", p.n).Int("queue", cap(p.jobs)).Msg("worker pool started")
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Int("worker", id).Str("panic", fmt.Sprint(r)).Msg("task panicked")
			metrics.IncTask("error")
		}
	}()
	if err := task(ctx); err != nil {
		p.log.Warn().Int("worker", id).Err(err).Msg("task error")
		metrics.IncTask("error")
		return
	}
	metrics.IncTask("ok")
}

// Stop refuses new tasks, lets the workers drain what is already queued and
// waits for them to exit.
func (p *Pool) Stop() {
	_ = p.Shutdown(context.Background())
}

// Shutdown is Stop bounded by ctx. When ctx ends first the task context is
// cancelled, the remaining queue is worked off with it, and ctx.Err() is
// returned once the workers have exited.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		p.log.Warn().Int("queued", len(p.jobs)).Msg("drain deadline reached; cancelling tasks")
		if p.cancel != nil {
			p.cancel()
		}
		<-done
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.log.Info().Msg("worker pool stopped")
	return err
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		metrics.IncTask("dropped")
		return ErrPoolStopped
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		metrics.IncTask("dropped")
		p.log.Warn().Msg("worker queue full; task dropped")
		return ErrQueueFull
	}
}
