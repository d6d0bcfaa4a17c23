package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"hexpi/internal/digits"
	"hexpi/internal/events"
	"hexpi/internal/logger"
	"hexpi/internal/metrics"
	"hexpi/internal/pause"
	"hexpi/internal/trigger"
	"hexpi/internal/worker"
)

const source = "coordinator"

// Config configures a Coordinator.
type Config struct {
	PauseInterval time.Duration     // time between pauses; 0 disables periodic pausing
	Trigger       trigger.Trigger   // resume signal awaited while paused
	Logger        *logger.Logger    // defaults to logger.Default
	EventBus      *events.Bus       // optional
	Metrics       metrics.Collector // defaults to metrics.NewNop()
}

// DefaultConfig pauses every 5 seconds and resumes only through Resume.
func DefaultConfig() Config {
	return Config{
		PauseInterval: 5 * time.Second,
		Trigger:       trigger.NewManual(),
	}
}

// Coordinator partitions a digit range across workers, pauses and resumes them
// in lock-step, and merges their output. It runs one computation at a time.
type Coordinator struct {
	config Config
	log    *logger.Logger

	mu      sync.RWMutex
	current *run

	pauseReq  chan struct{}
	resumeReq chan struct{}
}

type run struct {
	start   int64
	count   int64
	workers  []*digits.Worker
	gate     *pause.Gate
	began    time.Time
	finished chan struct{} // signalled whenever a worker finishes its shard
}

// New creates a coordinator.
func New(config Config) *Coordinator {
	if config.Trigger == nil {
		config.Trigger = trigger.NewManual()
	}
	if config.Metrics == nil {
		config.Metrics = metrics.NewNop()
	}
	log := config.Logger
	if log == nil {
		log = logger.Default
	}

	return &Coordinator{
		config:    config,
		log:       log,
		pauseReq:  make(chan struct{}, 1),
		resumeReq: make(chan struct{}, 1),
	}
}

func (c *Coordinator) publishEvent(event events.Event) {
	if c.config.EventBus != nil {
		c.config.EventBus.Publish(event)
	}
}

// GetDigits returns the hex digits of π at positions [start, start+count), one
// value in [0,15] per byte, computed by numWorkers parallel workers.
func (c *Coordinator) GetDigits(ctx context.Context, start, count int64, numWorkers int) ([]byte, error) {
	result, err := c.Run(ctx, start, count, numWorkers)
	if err != nil {
		return nil, err
	}
	return result.Digits, nil
}

// Run is GetDigits returning the full Result.
func (c *Coordinator) Run(ctx context.Context, start, count int64, numWorkers int) (*Result, error) {
	shards, err := Partition(start, count, numWorkers)
	if err != nil {
		return nil, err
	}
	if len(shards) == 0 {
		return newResult(start, make([]byte, 0), nil, 0, 0), nil
	}

	r := &run{
		start:   start,
		count:   count,
		workers: make([]*digits.Worker, len(shards)),
		gate:     pause.NewGate(),
		began:    time.Now(),
		finished: make(chan struct{}, 1),
	}
	for i, shard := range shards {
		r.workers[i] = digits.NewWorker(i, shard)
	}

	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	c.current = r
	c.drain()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.current = nil
		c.mu.Unlock()
	}()

	c.config.Metrics.RecordRunStarted(len(r.workers))
	c.log.Info(source, "Computing %d digits from position %d with %d workers", count, start, len(r.workers))

	result, err := c.execute(ctx, r)
	elapsed := time.Since(r.began)
	if err != nil {
		c.config.Metrics.RecordRunFinished("interrupted", elapsed)
		c.publishEvent(events.NewRunFailedEvent(err))
		c.log.Error(source, "Computation aborted after %v: %v", elapsed.Round(time.Millisecond), err)
		return nil, err
	}

	c.config.Metrics.RecordRunFinished("success", elapsed)
	c.publishEvent(events.NewRunCompletedEvent(count, elapsed))
	c.log.Info(source, "Computed %d digits in %v (%d pauses)", count, elapsed.Round(time.Millisecond), result.Pauses)
	return result, nil
}

func (c *Coordinator) execute(ctx context.Context, r *run) (*Result, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := worker.NewPool(len(r.workers))
	pool.Start(runCtx)
	c.log.Debug(source, "Pool running %d goroutines", pool.NumWorkers())

	errs := make([]error, len(r.workers))
	allDone := make(chan struct{})
	var remaining atomic.Int32
	remaining.Store(int32(len(r.workers)))

	c.publishEvent(events.NewRunStartedEvent(r.start, r.count, len(r.workers)))

	for i, w := range r.workers {
		c.log.Debug(w.Name(), "Assigned shard %v", w.Range())
		pool.Submit(func(ctx context.Context) {
			if err := w.Run(ctx, r.gate); err != nil {
				errs[i] = &ShardError{Shard: i, Err: err}
			} else {
				c.config.Metrics.RecordShardDone(i, w.Computed())
				c.publishEvent(events.NewWorkerDoneEvent(i, w.Computed()))
				c.log.Debug(w.Name(), "Shard %v done", w.Range())
			}
			select {
			case r.finished <- struct{}{}:
			default:
			}
			if remaining.Add(-1) == 0 {
				close(allDone)
			}
		})
	}

	monitorErr := c.monitor(runCtx, r, allDone)
	if monitorErr != nil {
		pool.Cancel()
	}
	pool.Stop()

	if monitorErr != nil {
		return nil, monitorErr
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInterrupted, err)
	}

	return c.merge(r), nil
}

// monitor drives the pause/resume control path until every worker is done.
func (c *Coordinator) monitor(ctx context.Context, r *run, allDone <-chan struct{}) error {
	var tick <-chan time.Time
	if c.config.PauseInterval > 0 {
		ticker := time.NewTicker(c.config.PauseInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-allDone:
			return nil

		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())

		case <-tick:
			if !c.pauseAll(ctx, r, allDone) {
				continue
			}
			if err := c.awaitResume(ctx, r, allDone); err != nil {
				if ctx.Err() != nil {
					return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
				}
				c.log.Warn(source, "Resume trigger %s failed: %v; periodic pausing disabled", c.config.Trigger.Name(), err)
				tick = nil
			}

		case <-c.pauseReq:
			if !c.pauseAll(ctx, r, allDone) {
				continue
			}
			if err := c.awaitResume(ctx, r, allDone); err != nil && ctx.Err() != nil {
				return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
			}
		}
	}
}

// pauseAll closes the gate unless the run is already complete, then reports
// each worker's progress. It returns false if nothing was paused.
func (c *Coordinator) pauseAll(ctx context.Context, r *run, allDone <-chan struct{}) bool {
	select {
	case <-allDone:
		return false
	case <-ctx.Done():
		return false
	default:
	}

	// Resume only queues requests while paused, so anything queued now is stale.
	select {
	case <-c.resumeReq:
	default:
	}

	r.gate.Pause()
	c.awaitCheckpoints(ctx, r, allDone)

	progress := make(map[int]int64, len(r.workers))
	for _, w := range r.workers {
		k := w.Computed()
		progress[w.ID()] = k
		c.config.Metrics.RecordProgress(w.ID(), k)
		c.log.Info(w.Name(), "digits computed so far: %d", k)
	}
	c.publishEvent(events.NewWorkersPausedEvent(progress))
	c.log.Info(source, "Workers paused; waiting for %s trigger", c.config.Trigger.Name())
	return true
}

// awaitCheckpoints returns once every unfinished worker is blocked at its
// checkpoint, so the progress reported for a pause is final until resume.
func (c *Coordinator) awaitCheckpoints(ctx context.Context, r *run, allDone <-chan struct{}) {
	for {
		changed := r.gate.Changed()

		pending := 0
		for _, w := range r.workers {
			if w.State() != digits.StateDone {
				pending++
			}
		}
		if r.gate.Waiting() >= pending {
			return
		}

		select {
		case <-changed:
		case <-r.finished:
		case <-allDone:
			return
		case <-ctx.Done():
			return
		}
	}
}

// awaitResume blocks until the trigger fires, Resume is called or every worker
// finishes, then reopens the gate.
func (c *Coordinator) awaitResume(ctx context.Context, r *run, allDone <-chan struct{}) error {
	pausedAt := time.Now()

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-allDone:
		case <-c.resumeReq:
		case <-waitCtx.Done():
			return
		}
		cancel()
	}()

	err := c.config.Trigger.Wait(waitCtx)
	if err != nil && waitCtx.Err() != nil && ctx.Err() == nil {
		// Released by Resume or completion rather than the trigger.
		err = nil
	}
	cancel()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	r.gate.Resume()
	pausedFor := time.Since(pausedAt)
	c.config.Metrics.RecordPause(pausedFor)
	c.publishEvent(events.NewWorkersResumedEvent(pausedFor))
	c.log.Info(source, "Workers resumed after %v", pausedFor.Round(time.Millisecond))

	return err
}

func (c *Coordinator) merge(r *run) *Result {
	out := make([]byte, r.count)
	for _, w := range r.workers {
		offset := w.Range().Start - r.start
		copy(out[offset:offset+w.Range().Count], w.Digits())
	}

	shards := make([]digits.Progress, len(r.workers))
	for i, w := range r.workers {
		shards[i] = w.Snapshot()
	}

	return newResult(r.start, out, shards, int(r.gate.Pauses()), time.Since(r.began))
}

// drain discards stale pause/resume requests. Callers hold c.mu.
func (c *Coordinator) drain() {
	for {
		select {
		case <-c.pauseReq:
		case <-c.resumeReq:
		default:
			return
		}
	}
}

// PauseNow requests an immediate pause of the current computation, in addition
// to the periodic ones. It returns false if nothing is running or the workers are
// already paused.
func (c *Coordinator) PauseNow() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil || c.current.gate.Paused() {
		return false
	}

	select {
	case c.pauseReq <- struct{}{}:
		return true
	default:
		return false
	}
}

// Resume releases paused workers without waiting for the trigger. It returns
// false if nothing is paused.
func (c *Coordinator) Resume() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil || !c.current.gate.Paused() {
		return false
	}

	select {
	case c.resumeReq <- struct{}{}:
		return true
	default:
		return false
	}
}

// Running reports whether a computation is in progress.
func (c *Coordinator) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current != nil
}

// Paused reports whether the current computation's workers are paused.
func (c *Coordinator) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current != nil && c.current.gate.Paused()
}

// Progress returns a snapshot of every worker of the current computation, in
// shard order. It is empty when nothing is running.
func (c *Coordinator) Progress() []digits.Progress {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil {
		return nil
	}

	out := make([]digits.Progress, len(c.current.workers))
	for i, w := range c.current.workers {
		out[i] = w.Snapshot()
	}
	return out
}
