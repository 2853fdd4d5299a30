package events

import (
	"time"

	"github.com/kilianp07/teamcast/core/model"
)

// Stage is the lifecycle point a BroadcastEvent reports.
type Stage string

const (
	StageAccepted  Stage = "accepted"
	StageRejected  Stage = "rejected"
	StageCompleted Stage = "completed"
	StageFailed    Stage = "failed"
)

// BroadcastEvent is published when a broadcast changes stage.
type BroadcastEvent struct {
	BroadcastID string
	Stage       Stage
	Target      model.TargetSpec
	Recipients  int
	Delivered   int
	Failed      int
	Reason      model.Reason
	Time        time.Time
}

// OutcomeEvent is published for each delivery attempt.
type OutcomeEvent struct {
	BroadcastID string
	Recipient   model.Ref
	Delivered   bool
	Err         error
	Latency     time.Duration
}
