package trigger

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by Wait once a trigger can no longer fire.
var ErrClosed = errors.New("trigger: closed")

// Trigger is an external resume signal. Wait blocks until the signal fires or
// ctx is done. Only signals that arrive while Wait is blocked count; earlier
// ones are discarded.
type Trigger interface {
	Wait(ctx context.Context) error
	Name() string
}

// Manual fires when Fire is called, for example from an HTTP handler.
type Manual struct {
	mu      sync.Mutex
	waiting chan struct{}
	waiters int
}

// NewManual creates a manual trigger.
func NewManual() *Manual {
	return &Manual{}
}

// Name returns "manual".
func (m *Manual) Name() string {
	return "manual"
}

// Wait blocks until Fire or ctx is done.
func (m *Manual) Wait(ctx context.Context) error {
	m.mu.Lock()
	if m.waiting == nil {
		m.waiting = make(chan struct{})
	}
	ch := m.waiting
	m.waiters++
	m.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		m.mu.Lock()
		// A Fire that raced with cancellation has already replaced the channel.
		if m.waiting == ch {
			m.waiters--
			if m.waiters == 0 {
				m.waiting = nil
			}
		}
		m.mu.Unlock()
		return ctx.Err()
	}
}

// Fire releases every current waiter. It returns false if nobody was waiting.
func (m *Manual) Fire() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.waiting == nil {
		return false
	}
	close(m.waiting)
	m.waiting = nil
	m.waiters = 0
	return true
}

// Waiting reports whether a caller is blocked in Wait.
func (m *Manual) Waiting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waiting != nil
}

// Delay fires a fixed duration after Wait is called. A zero Delay fires immediately.
type Delay time.Duration

// Name returns "delay".
func (d Delay) Name() string {
	return "delay"
}

// Wait sleeps for d or until ctx is done.
func (d Delay) Wait(ctx context.Context) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(time.Duration(d))
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
