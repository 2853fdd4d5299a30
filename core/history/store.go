// Package history keeps an audit trail of completed broadcasts.
package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kilianp07/teamcast/core/model"
)

// Record captures one completed broadcast.
type Record struct {
	ID         string           `json:"id"`
	Timestamp  time.Time        `json:"timestamp"`
	Sender     model.Ref        `json:"sender"`
	Text       string           `json:"text"`
	Target     model.TargetSpec `json:"target"`
	Recipients []model.Ref      `json:"recipients"`
	Total      int              `json:"total"`
	Delivered  int              `json:"delivered"`
	Failed     int              `json:"failed"`
	Outcomes   []Outcome        `json:"outcomes"`
}

// Outcome is the stored form of one delivery.
type Outcome struct {
	Recipient model.Ref       `json:"recipient"`
	Delivered bool            `json:"delivered"`
	Detail    json.RawMessage `json:"detail,omitempty"`
}

// Query defines filters for retrieving records. Zero values disable a
// filter. Results are ordered newest first.
type Query struct {
	Start time.Time
	End   time.Time
	// ParticipantID matches the sender or any recipient.
	ParticipantID string
	// Group matches broadcasts targeted at that group.
	Group model.Group
	// Limit caps the number of records returned.
	Limit int
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Matches reports whether rec satisfies every filter of q except Limit.
func (q Query) Matches(rec Record) bool {
	if !q.Start.IsZero() && rec.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && rec.Timestamp.After(q.End) {
		return false
	}
	if q.Group != "" && (rec.Target.Mode != model.TargetGroup || rec.Target.Group != q.Group) {
		return false
	}
	if q.ParticipantID != "" && !rec.involves(q.ParticipantID) {
		return false
	}
	return true
}

func (rec Record) involves(id string) bool {
	if rec.Sender.ID == id {
		return true
	}
	for _, r := range rec.Recipients {
		if r.ID == id {
			return true
		}
	}
	return false
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error          { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
