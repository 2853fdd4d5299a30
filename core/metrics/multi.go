package metrics

import (
	"errors"

	"github.com/kilianp07/teamcast/core/model"
)

// MultiSink fans out results to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDeliveries forwards the results to all sinks. Every sink is called
// even if an earlier one fails; the errors are joined.
func (m *MultiSink) RecordDeliveries(res []DeliveryResult) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordDeliveries(res))
	}
	return errors.Join(errs...)
}

// RecordBroadcast forwards to sinks implementing BroadcastRecorder.
func (m *MultiSink) RecordBroadcast(res BroadcastResult) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(BroadcastRecorder); ok {
			errs = append(errs, rec.RecordBroadcast(res))
		}
	}
	return errors.Join(errs...)
}

// RecordRejection forwards to sinks implementing RejectionRecorder.
func (m *MultiSink) RecordRejection(reason model.Reason) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(RejectionRecorder); ok {
			errs = append(errs, rec.RecordRejection(reason))
		}
	}
	return errors.Join(errs...)
}
