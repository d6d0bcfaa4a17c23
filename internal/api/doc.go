// Package api serves a Coordinator over HTTP.
//
// # Routes
//
//	GET  /api/status  running flag, pause state and per-worker progress
//	GET  /api/result  the last completed Result
//	POST /api/run     start a computation: {"start":0,"count":1000,"workers":4}
//	POST /api/pause   pause the workers now
//	POST /api/resume  fire the manual trigger or release the workers
//	POST /api/cancel  abort the current computation
//	GET  /metrics     Prometheus exposition, when a Gatherer is configured
//	     /ws          WebSocket stream of events and progress snapshots
package api
