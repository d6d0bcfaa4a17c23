// Package coordinator computes a range of hexadecimal digits of π with a set of
// parallel digits.Worker instances.
//
// A Coordinator partitions [start, start+count) into contiguous shards, runs one
// worker per shard and merges their buffers in shard order once every worker is
// done. While a run is in progress it periodically closes a shared pause.Gate,
// logs each worker's progress and waits for its trigger.Trigger before opening
// the gate again. PauseNow and Resume drive the same path on demand.
//
// # Usage
//
//	c := coordinator.New(coordinator.Config{
//	    PauseInterval: 5 * time.Second,
//	    Trigger:       trigger.NewLine(os.Stdin),
//	})
//	digits, err := c.GetDigits(ctx, 0, 1000, 4)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(coordinator.FormatHex(digits))
//
// A run is aborted with ErrInterrupted when its context is cancelled. No partial
// result is returned in that case.
package coordinator
