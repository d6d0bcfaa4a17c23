package metrics

import "time"

// Collector records computation metrics. Implementations must be safe for
// concurrent use and must not block.
type Collector interface {
	// RecordRunStarted marks the start of a run with the given shard count.
	RecordRunStarted(workers int)

	// RecordRunFinished records the outcome ("success" or "interrupted") and
	// duration of a run. Requests rejected by validation never start a run and
	// are not recorded.
	RecordRunFinished(result string, duration time.Duration)

	// RecordShardDone records that a worker finished its shard of digits.
	RecordShardDone(worker int, digits int64)

	// RecordProgress sets the number of digits a worker has computed so far.
	RecordProgress(worker int, digits int64)

	// RecordPause records one pause of all workers and how long it lasted.
	RecordPause(duration time.Duration)
}
