package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector backed by Prometheus.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	activeWorkers prometheus.Gauge
	digits        *prometheus.CounterVec
	progress      *prometheus.GaugeVec
	pauses        prometheus.Counter
	pauseDuration prometheus.Histogram
}

// Compile-time assertion that PrometheusCollector implements Collector.
var _ Collector = (*PrometheusCollector)(nil)

// NewPrometheus creates a Prometheus-backed collector. A nil reg uses
// prometheus.DefaultRegisterer; an empty namespace defaults to "hexpi".
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "hexpi"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "runs_total",
			Help:      "Digit computations by result.",
		}, []string{"result"})

		p.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of digit computations, including pauses.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		})

		p.activeWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      "active_workers",
			Help:      "Workers of the current run that have not finished.",
		})

		p.digits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "digits_computed_total",
			Help:      "Hex digits produced by finished shards, by worker index.",
		}, []string{"worker"})

		p.progress = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      "worker_progress_digits",
			Help:      "Digits computed so far by each worker of the current run.",
		}, []string{"worker"})

		p.pauses = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "pauses_total",
			Help:      "Times all workers were paused.",
		})

		p.pauseDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      "pause_duration_seconds",
			Help:      "Time workers spent paused waiting for the resume trigger.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
		})

		p.reg.MustRegister(p.runs)
		p.reg.MustRegister(p.runDuration)
		p.reg.MustRegister(p.activeWorkers)
		p.reg.MustRegister(p.digits)
		p.reg.MustRegister(p.progress)
		p.reg.MustRegister(p.pauses)
		p.reg.MustRegister(p.pauseDuration)
	})
}

// RecordRunStarted resets per-worker progress and sets the active worker gauge.
func (p *PrometheusCollector) RecordRunStarted(workers int) {
	p.ensureRegistered()
	p.progress.Reset()
	p.activeWorkers.Set(float64(workers))
}

// RecordRunFinished counts the run by result and observes its duration.
func (p *PrometheusCollector) RecordRunFinished(result string, duration time.Duration) {
	p.ensureRegistered()
	p.runs.WithLabelValues(result).Inc()
	p.runDuration.Observe(duration.Seconds())
	p.activeWorkers.Set(0)
}

// RecordShardDone adds the shard's digits and decrements the active gauge.
func (p *PrometheusCollector) RecordShardDone(worker int, digits int64) {
	p.ensureRegistered()
	label := strconv.Itoa(worker)
	p.digits.WithLabelValues(label).Add(float64(digits))
	p.progress.WithLabelValues(label).Set(float64(digits))
	p.activeWorkers.Dec()
}

// RecordProgress sets the worker's progress gauge.
func (p *PrometheusCollector) RecordProgress(worker int, digits int64) {
	p.ensureRegistered()
	p.progress.WithLabelValues(strconv.Itoa(worker)).Set(float64(digits))
}

// RecordPause counts a pause and observes how long it lasted.
func (p *PrometheusCollector) RecordPause(duration time.Duration) {
	p.ensureRegistered()
	p.pauses.Inc()
	p.pauseDuration.Observe(duration.Seconds())
}
