// Package worker provides a fixed-size goroutine pool.
//
// # Basic Usage
//
//	pool := worker.NewPool(4)
//	pool.Start(ctx)
//
//	for _, shard := range shards {
//	    pool.Submit(func(ctx context.Context) {
//	        // compute shard, honouring ctx
//	    })
//	}
//
//	pool.Stop() // waits for every submitted job
//
// Submit blocks while the queue is full. A job accepted by Submit always runs;
// cancelling the Start context (or calling Cancel) is seen by jobs through their
// ctx argument, so callers waiting on per-job completion are never stranded.
package worker
