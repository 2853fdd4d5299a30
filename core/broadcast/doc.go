// Package broadcast turns a message, a targeting rule and a roster snapshot
// into throttled deliveries and a per-recipient report.
//
// The pipeline is Resolve, Dispatch and Aggregate. Service wires the three
// together with request validation, history, metrics and events.
package broadcast
