package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrShutdownTimeout is returned when workers don't stop within timeout.
var ErrShutdownTimeout = errors.New("worker pool shutdown timed out")

// ErrPoolClosed is returned by Do after Stop has been called.
var ErrPoolClosed = errors.New("worker pool is closed")

// Pool bounds how many engine invocations run at once. Callers block in Do
// until a slot frees up or their context ends.
type Pool struct {
	workers int
	sem     *semaphore.Weighted
	logger  *slog.Logger

	mu       sync.Mutex
	closed   bool
	wg       sync.WaitGroup
	inFlight atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

// Config holds worker pool configuration.
type Config struct {
	Workers int
}

// NewPool creates a new worker pool.
func NewPool(cfg Config, logger *slog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers: cfg.Workers,
		sem:     semaphore.NewWeighted(int64(cfg.Workers)),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Workers returns the number of concurrent slots.
func (p *Pool) Workers() int {
	return p.workers
}

// InFlight returns the number of tasks currently holding a slot.
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}

// Do runs fn once a slot is free. The context passed to fn is cancelled when
// either ctx ends or the pool stops.
func (p *Pool) Do(ctx context.Context, fn func(context.Context) error) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()
	defer p.wg.Done()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.ctx, cancel)
	defer stop()

	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)

	return fn(taskCtx)
}

// Stop rejects new tasks, cancels running ones and waits for them to return.
func (p *Pool) Stop(timeout time.Duration) error {
	p.logger.Info("stopping worker pool", "in_flight", p.InFlight())

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}
