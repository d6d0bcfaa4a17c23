// Package metrics records digit computation metrics.
//
// Collector is implemented by NopMetrics, which discards everything, and by
// PrometheusCollector, which registers its series lazily on first use:
//
//	reg := prometheus.NewRegistry()
//	c := metrics.NewPrometheus(reg, "hexpi")
//	coord := coordinator.New(coordinator.Config{Metrics: c})
//
// Exposed series (namespace "hexpi"):
//   - runs_total{result}
//   - run_duration_seconds
//   - active_workers
//   - digits_computed_total{worker}
//   - worker_progress_digits{worker}
//   - pauses_total
//   - pause_duration_seconds
//
// All methods are safe for concurrent use.
package metrics
