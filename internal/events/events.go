// Package events carries run lifecycle notifications from the coordinator to
// observers such as the API server.
package events

import "time"

// EventType identifies a lifecycle notification.
type EventType string

const (
	// EventRunStarted is emitted once the shards are assigned and workers launched
	EventRunStarted EventType = "run_started"
	// EventWorkersPaused is emitted after the pause gate closes
	EventWorkersPaused EventType = "workers_paused"
	// EventWorkersResumed is emitted after the pause gate reopens
	EventWorkersResumed EventType = "workers_resumed"
	// EventWorkerDone is emitted when a single shard has been fully computed
	EventWorkerDone EventType = "worker_done"
	// EventRunCompleted is emitted after the shards are merged
	EventRunCompleted EventType = "run_completed"
	// EventRunFailed is emitted when a run aborts
	EventRunFailed EventType = "run_failed"
)

// Event is a single notification.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data"`
}

// EventData holds the fields relevant to the event type.
type EventData struct {
	Start    int64          `json:"start,omitempty"`
	Count    int64          `json:"count,omitempty"`
	Workers  int            `json:"workers,omitempty"`
	Worker   int            `json:"worker,omitempty"`
	Progress map[int]int64  `json:"progress,omitempty"`
	Elapsed  string         `json:"elapsed,omitempty"`
	Error    string         `json:"error,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// NewRunStartedEvent creates a run_started event.
func NewRunStartedEvent(start, count int64, workers int) Event {
	return Event{
		Type:      EventRunStarted,
		Timestamp: time.Now(),
		Data:      EventData{Start: start, Count: count, Workers: workers},
	}
}

// NewWorkersPausedEvent creates a workers_paused event with per-worker progress.
func NewWorkersPausedEvent(progress map[int]int64) Event {
	return Event{
		Type:      EventWorkersPaused,
		Timestamp: time.Now(),
		Data:      EventData{Progress: progress},
	}
}

// NewWorkersResumedEvent creates a workers_resumed event.
func NewWorkersResumedEvent(pausedFor time.Duration) Event {
	return Event{
		Type:      EventWorkersResumed,
		Timestamp: time.Now(),
		Data:      EventData{Elapsed: pausedFor.String()},
	}
}

// NewWorkerDoneEvent creates a worker_done event.
func NewWorkerDoneEvent(worker int, count int64) Event {
	return Event{
		Type:      EventWorkerDone,
		Timestamp: time.Now(),
		Data:      EventData{Worker: worker, Count: count},
	}
}

// NewRunCompletedEvent creates a run_completed event.
func NewRunCompletedEvent(count int64, elapsed time.Duration) Event {
	return Event{
		Type:      EventRunCompleted,
		Timestamp: time.Now(),
		Data:      EventData{Count: count, Elapsed: elapsed.String()},
	}
}

// NewRunFailedEvent creates a run_failed event.
func NewRunFailedEvent(err error) Event {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	return Event{
		Type:      EventRunFailed,
		Timestamp: time.Now(),
		Data:      EventData{Error: errMsg},
	}
}
