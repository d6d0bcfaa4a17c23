package worker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"hexpi/internal/logger"
)

// Job is a unit of work run by the pool. It receives the pool's context and is
// expected to return promptly once that context is cancelled.
type Job func(ctx context.Context)

// PoolConfig configures a Pool.
type PoolConfig struct {
	NumWorkers  int // goroutines; 0 means runtime.NumCPU()
	QueueFactor int // queue capacity = NumWorkers * QueueFactor
}

// DefaultPoolConfig returns the default configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		NumWorkers:  0,
		QueueFactor: 1,
	}
}

// Pool runs submitted jobs on a fixed set of goroutines.
//
// Every job accepted by Submit is run exactly once, even if the context passed
// to Start is cancelled before the job is dequeued; cancellation is delivered to
// the job through its ctx argument instead.
type Pool struct {
	numWorkers int
	jobs       chan Job
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	started    bool
	stopping   atomic.Bool
	mu         sync.Mutex
}

// NewPool creates a pool with numWorkers goroutines (CPU count if <= 0).
func NewPool(numWorkers int) *Pool {
	config := DefaultPoolConfig()
	config.NumWorkers = numWorkers
	return NewPoolWithConfig(config)
}

// NewPoolWithConfig creates a pool from config.
func NewPoolWithConfig(config PoolConfig) *Pool {
	numWorkers := config.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	queueFactor := config.QueueFactor
	if queueFactor <= 0 {
		queueFactor = 1
	}
	return &Pool{
		numWorkers: numWorkers,
		jobs:       make(chan Job, numWorkers*queueFactor),
	}
}

// Start launches the pool goroutines. Calling Start twice is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.started = true

	for range p.numWorkers {
		p.wg.Add(1)
		go p.worker()
	}

	logger.Debug("", "WorkerPool started with %d workers", p.numWorkers)
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobs {
		job(p.ctx)
	}
}

// Submit queues job, blocking while the queue is full. It returns false if the
// pool is not running.
func (p *Pool) Submit(job Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.stopping.Load() {
		return false
	}

	p.jobs <- job
	return true
}

// Stop waits for every queued job to finish and stops the goroutines. The pool
// cannot be restarted.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started || p.stopping.Load() {
		p.mu.Unlock()
		return
	}
	p.stopping.Store(true)
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()

	logger.Debug("", "WorkerPool stopped")
}

// Cancel cancels the context handed to running and queued jobs.
func (p *Pool) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

// NumWorkers returns the number of goroutines.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}
