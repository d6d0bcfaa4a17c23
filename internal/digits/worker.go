package digits

import (
	"context"
	"fmt"
	"sync/atomic"

	"hexpi/internal/bbp"
	"hexpi/internal/pause"
)

// Range is a contiguous run of hex digit positions [Start, Start+Count).
type Range struct {
	Start int64 `json:"start"`
	Count int64 `json:"count"`
}

// End returns the first position after the range.
func (r Range) End() int64 {
	return r.Start + r.Count
}

// Valid reports whether both bounds are non-negative.
func (r Range) Valid() bool {
	return r.Start >= 0 && r.Count >= 0
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End())
}

// State is the lifecycle state of a Worker.
type State int32

const (
	StateRunning State = iota
	StatePaused
	StateDone
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Worker computes the hex digits of one Range. The output buffer is owned by the
// worker until Run returns; progress and state may be read from any goroutine.
type Worker struct {
	id     int
	rng    Range
	digits []byte

	computed atomic.Int64
	state    atomic.Int32
	done     chan struct{}
}

// NewWorker creates a worker for r. id is the shard index.
func NewWorker(id int, r Range) *Worker {
	return &Worker{
		id:     id,
		rng:    r,
		digits: make([]byte, r.Count),
		done:   make(chan struct{}),
	}
}

// ID returns the shard index of the worker.
func (w *Worker) ID() int {
	return w.id
}

// Name returns the log source name of the worker.
func (w *Worker) Name() string {
	return fmt.Sprintf("worker-%d", w.id)
}

// Range returns the assigned range.
func (w *Worker) Range() Range {
	return w.rng
}

// Computed returns how many digits have been produced so far.
func (w *Worker) Computed() int64 {
	return w.computed.Load()
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Done is closed when Run returns, successfully or not.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Digits returns the output buffer. It is only complete once State is StateDone.
func (w *Worker) Digits() []byte {
	return w.digits
}

// Run computes every digit of the range, consulting gate before each one.
// It returns the context error if ctx is cancelled while the worker is paused;
// in that case the worker never reaches StateDone.
func (w *Worker) Run(ctx context.Context, gate *pause.Gate) error {
	defer close(w.done)

	hooks := pause.Hooks{
		OnPause:  func() { w.state.Store(int32(StatePaused)) },
		OnResume: func() { w.state.Store(int32(StateRunning)) },
	}

	var sum float64
	pos := w.rng.Start

	for i := range w.rng.Count {
		if err := gate.Checkpoint(ctx, hooks); err != nil {
			return err
		}

		if i%bbp.DigitsPerSum == 0 {
			sum = bbp.Sum(pos)
			pos += bbp.DigitsPerSum
		}

		w.digits[i], sum = bbp.NextDigit(sum)
		w.computed.Add(1)
	}

	w.state.Store(int32(StateDone))
	return nil
}

// Progress is a point-in-time view of a worker.
type Progress struct {
	ID       int    `json:"id"`
	Range    Range  `json:"range"`
	Computed int64  `json:"computed"`
	State    string `json:"state"`
}

// Snapshot returns the worker's current progress.
func (w *Worker) Snapshot() Progress {
	return Progress{
		ID:       w.id,
		Range:    w.rng,
		Computed: w.Computed(),
		State:    w.State().String(),
	}
}
