package metrics

import "time"

// NopMetrics discards every metric.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements Collector.
var _ Collector = (*NopMetrics)(nil)

// NewNop creates a collector that records nothing.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordRunStarted discards the metric.
func (n *NopMetrics) RecordRunStarted(_ /* workers */ int) {}

// RecordRunFinished discards the metric.
func (n *NopMetrics) RecordRunFinished(_ /* result */ string, _ /* duration */ time.Duration) {}

// RecordShardDone discards the metric.
func (n *NopMetrics) RecordShardDone(_ /* worker */ int, _ /* digits */ int64) {}

// RecordProgress discards the metric.
func (n *NopMetrics) RecordProgress(_ /* worker */ int, _ /* digits */ int64) {}

// RecordPause discards the metric.
func (n *NopMetrics) RecordPause(_ /* duration */ time.Duration) {}
