package metrics

import (
	"time"

	"github.com/kilianp07/teamcast/core/model"
)

// DeliveryResult is one transport call of a broadcast.
type DeliveryResult struct {
	BroadcastID string
	RecipientID string
	Group       model.Group
	Provider    string
	Delivered   bool
	Latency     time.Duration
	Time        time.Time
}

// MetricsSink records per-recipient delivery results.
type MetricsSink interface {
	RecordDeliveries(results []DeliveryResult) error
}

// BroadcastResult summarizes one accepted broadcast.
type BroadcastResult struct {
	BroadcastID string
	Target      string
	Total       int
	Delivered   int
	Failed      int
	Duration    time.Duration
	Time        time.Time
}

// BroadcastRecorder records broadcast summaries.
type BroadcastRecorder interface {
	RecordBroadcast(res BroadcastResult) error
}

// RejectionRecorder counts requests rejected before dispatch.
type RejectionRecorder interface {
	RecordRejection(reason model.Reason) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordDeliveries([]DeliveryResult) error { return nil }
func (NopSink) RecordBroadcast(BroadcastResult) error   { return nil }
func (NopSink) RecordRejection(model.Reason) error      { return nil }
