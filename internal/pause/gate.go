// Package pause provides Gate, the pause signal shared by every digit worker
// of a single computation.
//
// A Gate is either running or paused. Workers call Checkpoint before each unit
// of work; while the gate is paused they block until the coordinator calls
// Resume, which releases every blocked worker with a single broadcast.
//
//	gate := pause.NewGate()
//	go func() {
//	    for i := range n {
//	        if err := gate.Checkpoint(ctx); err != nil {
//	            return
//	        }
//	        work(i)
//	    }
//	}()
//
//	gate.Pause()
//	// ... wait for an operator ...
//	gate.Resume()
package pause

import (
	"context"
	"sync"
)

// Gate is a two-state (running/paused) barrier. Only the coordinator mutates it;
// workers only observe it through Checkpoint.
type Gate struct {
	mu      sync.Mutex
	paused  bool
	resume  chan struct{}
	pauses  uint64
	waiting int
	changed chan struct{}
}

// NewGate returns a gate in the running state.
func NewGate() *Gate {
	return &Gate{}
}

// Pause closes the gate. It returns false if the gate was already paused.
func (g *Gate) Pause() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.paused {
		return false
	}

	g.paused = true
	g.resume = make(chan struct{})
	g.pauses++
	return true
}

// Resume opens the gate and wakes every worker blocked in Checkpoint.
// It returns false if the gate was not paused.
func (g *Gate) Resume() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.paused {
		return false
	}

	g.paused = false
	close(g.resume)
	g.resume = nil
	return true
}

// Paused reports whether the gate is currently closed.
func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// Pauses returns how many times the gate has been closed.
func (g *Gate) Pauses() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pauses
}

// Waiting returns the number of callers currently blocked in Checkpoint.
func (g *Gate) Waiting() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waiting
}

// Changed returns a channel that is closed the next time Waiting changes.
func (g *Gate) Changed() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.changed == nil {
		g.changed = make(chan struct{})
	}
	return g.changed
}

func (g *Gate) notifyLocked() {
	if g.changed != nil {
		close(g.changed)
		g.changed = nil
	}
}

// Checkpoint returns immediately while the gate is running and ctx is live. While it is paused
// it calls onPause (if set) once, blocks until Resume, then calls onResume.
// The flag is only read under the lock, so a worker released by Resume never acts
// on a value read before the coordinator's last mutation.
//
// If ctx is cancelled, before or while blocked, Checkpoint returns ctx.Err().
func (g *Gate) Checkpoint(ctx context.Context, hooks ...Hooks) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var h Hooks
	if len(hooks) > 0 {
		h = hooks[0]
	}

	blocked := false
	for {
		g.mu.Lock()
		if !g.paused {
			g.mu.Unlock()
			if blocked && h.OnResume != nil {
				h.OnResume()
			}
			return nil
		}
		ch := g.resume
		if !blocked {
			blocked = true
			if h.OnPause != nil {
				h.OnPause()
			}
		}
		g.waiting++
		g.notifyLocked()
		g.mu.Unlock()

		select {
		case <-ch:
			g.leave()
		case <-ctx.Done():
			g.leave()
			return ctx.Err()
		}
	}
}

func (g *Gate) leave() {
	g.mu.Lock()
	g.waiting--
	g.notifyLocked()
	g.mu.Unlock()
}

// Hooks are optional callbacks run by Checkpoint around a blocking wait.
// OnPause runs with the gate locked, before the caller is counted by Waiting,
// and must not call back into the gate.
type Hooks struct {
	OnPause  func()
	OnResume func()
}
