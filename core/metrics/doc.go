// Package metrics defines the recorders used to observe broadcasts. Sinks
// like PromSink and InfluxSink (see infra/metrics) record per-recipient
// deliveries and per-broadcast summaries and can be combined with
// NewMultiSink. NewMetricsSink returns a MultiSink automatically when
// several sinks are configured.
package metrics
