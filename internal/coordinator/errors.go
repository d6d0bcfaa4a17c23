package coordinator

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is returned when start or count is negative.
	ErrInvalidRange = errors.New("coordinator: invalid digit range")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("coordinator: worker count must be positive")

	// ErrInterrupted is returned when a run is cancelled while workers or the
	// coordinator are blocked. No partial result is returned with it.
	ErrInterrupted = errors.New("coordinator: computation interrupted")

	// ErrAlreadyRunning is returned when a run is requested while another is in progress.
	ErrAlreadyRunning = errors.New("coordinator: a computation is already running")
)

// ShardError reports which shard's worker was interrupted.
type ShardError struct {
	Shard int
	Err   error
}

func (e *ShardError) Error() string {
	return fmt.Sprintf("shard %d: %v", e.Shard, e.Err)
}

func (e *ShardError) Unwrap() error {
	return e.Err
}
