package broadcast

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/teamcast/core/events"
	"github.com/kilianp07/teamcast/core/history"
	"github.com/kilianp07/teamcast/core/logger"
	"github.com/kilianp07/teamcast/core/metrics"
	"github.com/kilianp07/teamcast/core/model"
	"github.com/kilianp07/teamcast/core/monitoring"
	"github.com/kilianp07/teamcast/core/roster"
	"github.com/kilianp07/teamcast/core/transport"
	"github.com/kilianp07/teamcast/internal/eventbus"
)

// ErrUnexpected is returned for failures that are not the caller's fault.
// The cause is logged and reported, never returned.
var ErrUnexpected = errors.New("unexpected error")

// SystemSender is used when the sender is not part of the roster.
const SystemSender = "System"

// Request is one broadcast as submitted by a client.
type Request struct {
	SenderID string
	Message  string
	Target   model.TargetSpec
	// Participants is the roster snapshot; nil means it was not supplied.
	Participants []model.Participant
}

// Result is the report of an accepted broadcast.
type Result struct {
	ID         string
	Sender     model.Ref
	Target     model.TargetSpec
	Message    string
	Summary    Summary
	StartedAt  time.Time
	FinishedAt time.Time
}

// Deps are the collaborators of a Service. Only Dispatcher is required.
type Deps struct {
	Dispatcher      *Dispatcher
	Provider        string
	History         history.Store
	Metrics         metrics.MetricsSink
	Logger          logger.Logger
	BroadcastEvents eventbus.Publisher[events.BroadcastEvent]
	OutcomeEvents   eventbus.Publisher[events.OutcomeEvent]
}

// Service runs broadcasts end to end.
type Service struct {
	dispatcher *Dispatcher
	provider   string
	history    history.Store
	metrics    metrics.MetricsSink
	log        logger.Logger
	broadcasts eventbus.Publisher[events.BroadcastEvent]
	outcomes   eventbus.Publisher[events.OutcomeEvent]

	newID func() string
	now   func() time.Time
}

// NewService builds a Service from deps.
func NewService(deps Deps) *Service {
	s := &Service{
		dispatcher: deps.Dispatcher,
		provider:   deps.Provider,
		history:    deps.History,
		metrics:    deps.Metrics,
		log:        deps.Logger,
		broadcasts: deps.BroadcastEvents,
		outcomes:   deps.OutcomeEvents,
		newID:      uuid.NewString,
		now:        time.Now,
	}
	if s.history == nil {
		s.history = history.NopStore{}
	}
	if s.metrics == nil {
		s.metrics = metrics.NopSink{}
	}
	if s.log == nil {
		s.log = logger.NopLogger{}
	}
	if s.provider == "" && s.dispatcher != nil {
		s.provider = transport.NameOf(s.dispatcher.transport)
	}
	return s
}

// Preview returns who would receive a broadcast to target. Entries without a
// phone number are included.
func (s *Service) Preview(participants []model.Participant, target model.TargetSpec) ([]model.Participant, error) {
	clean, err := validateRoster(participants, target)
	if err != nil {
		return nil, err
	}
	return Resolve(clean, target, ModePreview), nil
}

// Broadcast validates req, delivers the message and returns the report. A
// ValidationError is returned before any delivery; panics and unknown
// failures surface as ErrUnexpected.
func (s *Service) Broadcast(ctx context.Context, req Request) (res *Result, err error) {
	id := s.newID()
	defer func() {
		if r := recover(); r != nil {
			perr := &monitoring.PanicError{Value: r, Stack: string(debug.Stack())}
			s.log.Errorf("broadcast %s panicked: %v", id, r)
			monitoring.CaptureException(perr, map[string]string{"broadcast_id": id})
			s.publish(events.BroadcastEvent{BroadcastID: id, Stage: events.StageFailed, Target: req.Target, Time: s.now()})
			res, err = nil, ErrUnexpected
		}
	}()

	res, err = s.run(ctx, id, req)
	if err == nil {
		return res, nil
	}
	if reason := model.ReasonOf(err); reason != "" {
		s.log.Infow("broadcast rejected", map[string]any{"broadcast_id": id, "reason": string(reason)})
		s.publish(events.BroadcastEvent{BroadcastID: id, Stage: events.StageRejected, Target: req.Target, Reason: reason, Time: s.now()})
		return nil, err
	}
	s.log.Errorf("broadcast %s failed: %v", id, err)
	monitoring.CaptureException(err, map[string]string{"broadcast_id": id})
	s.publish(events.BroadcastEvent{BroadcastID: id, Stage: events.StageFailed, Target: req.Target, Time: s.now()})
	return nil, ErrUnexpected
}

func (s *Service) run(ctx context.Context, id string, req Request) (*Result, error) {
	if s.dispatcher == nil {
		return nil, fmt.Errorf("no dispatcher configured")
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, model.NewValidationError(model.ReasonEmptyMessage, "message is empty")
	}
	clean, err := validateRoster(req.Participants, req.Target)
	if err != nil {
		return nil, err
	}
	recipients := Resolve(clean, req.Target, ModeDispatch)
	if len(recipients) == 0 {
		return nil, model.NewValidationError(model.ReasonNoRecipients, "no reachable recipients for target")
	}

	res := &Result{
		ID:        id,
		Sender:    senderOf(clean, req.SenderID),
		Target:    req.Target,
		Message:   message,
		StartedAt: s.now(),
	}
	s.publish(events.BroadcastEvent{BroadcastID: id, Stage: events.StageAccepted, Target: req.Target, Recipients: len(recipients), Time: res.StartedAt})
	s.log.Infow("broadcast accepted", map[string]any{"broadcast_id": id, "target": req.Target.String(), "recipients": len(recipients)})

	outcomes, err := s.dispatcher.DispatchNotify(ctx, message, recipients, func(o Outcome) {
		if s.outcomes != nil {
			s.outcomes.Publish(events.OutcomeEvent{BroadcastID: id, Recipient: o.Recipient.Ref(), Delivered: o.Delivered(), Err: o.Err, Latency: o.Latency})
		}
	})
	if err != nil {
		return nil, err
	}
	res.Summary = Aggregate(outcomes)
	res.FinishedAt = s.now()

	s.record(context.WithoutCancel(ctx), res)
	s.publish(events.BroadcastEvent{
		BroadcastID: id,
		Stage:       events.StageCompleted,
		Target:      req.Target,
		Recipients:  res.Summary.TotalRecipients,
		Delivered:   res.Summary.DeliveredCount,
		Failed:      res.Summary.FailedCount,
		Time:        res.FinishedAt,
	})
	s.log.Infow("broadcast completed", map[string]any{
		"broadcast_id": id,
		"delivered":    res.Summary.DeliveredCount,
		"failed":       res.Summary.FailedCount,
	})
	return res, nil
}

// record stores history and metrics. Failures are logged only since the
// deliveries already happened.
func (s *Service) record(ctx context.Context, res *Result) {
	if err := s.history.Append(ctx, historyRecord(res)); err != nil {
		s.log.Errorf("history append for %s failed: %v", res.ID, err)
	}
	results := make([]metrics.DeliveryResult, 0, len(res.Summary.Outcomes))
	for _, o := range res.Summary.Outcomes {
		results = append(results, metrics.DeliveryResult{
			BroadcastID: res.ID,
			RecipientID: o.Recipient.ID,
			Group:       o.Recipient.Group,
			Provider:    s.provider,
			Delivered:   o.Delivered(),
			Latency:     o.Latency,
			Time:        res.FinishedAt,
		})
	}
	if err := s.metrics.RecordDeliveries(results); err != nil {
		s.log.Warnf("metrics record failed: %v", err)
	}
	if rec, ok := s.metrics.(metrics.BroadcastRecorder); ok {
		err := rec.RecordBroadcast(metrics.BroadcastResult{
			BroadcastID: res.ID,
			Target:      res.Target.String(),
			Total:       res.Summary.TotalRecipients,
			Delivered:   res.Summary.DeliveredCount,
			Failed:      res.Summary.FailedCount,
			Duration:    res.FinishedAt.Sub(res.StartedAt),
			Time:        res.FinishedAt,
		})
		if err != nil {
			s.log.Warnf("metrics record failed: %v", err)
		}
	}
}

func (s *Service) publish(e events.BroadcastEvent) {
	if s.broadcasts != nil {
		s.broadcasts.Publish(e)
	}
}

// validateRoster checks the request-level invariants and returns the
// sanitized participants.
func validateRoster(participants []model.Participant, target model.TargetSpec) ([]model.Participant, error) {
	if participants == nil {
		return nil, model.NewValidationError(model.ReasonMissingParticipants, "participants are required")
	}
	if len(participants) > roster.MaxSize {
		return nil, model.NewValidationError(model.ReasonTooManyParticipants,
			fmt.Sprintf("at most %d participants allowed", roster.MaxSize))
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	return roster.Clean(participants), nil
}

func senderOf(participants []model.Participant, id string) model.Ref {
	if id != "" {
		for _, p := range participants {
			if p.ID == id {
				return p.Ref()
			}
		}
	}
	return model.Ref{Name: SystemSender}
}

func historyRecord(res *Result) history.Record {
	rec := history.Record{
		ID:         res.ID,
		Timestamp:  res.StartedAt,
		Sender:     res.Sender,
		Text:       res.Message,
		Target:     res.Target,
		Recipients: make([]model.Ref, 0, len(res.Summary.Outcomes)),
		Outcomes:   make([]history.Outcome, 0, len(res.Summary.Outcomes)),
		Total:      res.Summary.TotalRecipients,
		Delivered:  res.Summary.DeliveredCount,
		Failed:     res.Summary.FailedCount,
	}
	for _, o := range res.Summary.Outcomes {
		rec.Recipients = append(rec.Recipients, o.Recipient.Ref())
		rec.Outcomes = append(rec.Outcomes, history.Outcome{Recipient: o.Recipient.Ref(), Delivered: o.Delivered(), Detail: o.Detail})
	}
	return rec
}
