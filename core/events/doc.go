// Package events defines the broadcast related events emitted on the event bus.
//
// Available event types:
//   - BroadcastEvent: a request was accepted, rejected or completed
//   - OutcomeEvent: result of one delivery attempt
package events
