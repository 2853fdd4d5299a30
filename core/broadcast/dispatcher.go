package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kilianp07/teamcast/core/logger"
	"github.com/kilianp07/teamcast/core/model"
	"github.com/kilianp07/teamcast/core/transport"
)

// DefaultCallTimeout bounds a single transport call.
const DefaultCallTimeout = 10 * time.Second

// Status is the result of one delivery attempt.
type Status string

const (
	StatusDelivered Status = "DELIVERED"
	StatusFailed    Status = "FAILED"
)

// ErrNoPhone is reported for recipients that cannot be reached.
var ErrNoPhone = errors.New("recipient has no phone number")

// Outcome is the result of delivering the message to one recipient.
type Outcome struct {
	Recipient model.Participant
	Status    Status
	// Detail is the provider response on success or an error payload on
	// failure.
	Detail  json.RawMessage
	Err     error
	Latency time.Duration
}

// Delivered reports whether the transport accepted the message.
func (o Outcome) Delivered() bool { return o.Status == StatusDelivered }

// DispatcherConfig tunes a Dispatcher. Zero values select defaults.
type DispatcherConfig struct {
	Interval    time.Duration
	CallTimeout time.Duration
	// Shared spaces deliveries across every dispatcher holding it.
	Shared *rate.Limiter
}

// OutcomeHook is invoked after every attempt in recipient order.
type OutcomeHook func(Outcome)

// Dispatcher delivers one message to a list of recipients, one at a time.
type Dispatcher struct {
	transport   transport.Transport
	interval    time.Duration
	callTimeout time.Duration
	shared      *rate.Limiter
	log         logger.Logger
}

// NewDispatcher returns a Dispatcher sending through t.
func NewDispatcher(t transport.Transport, cfg DispatcherConfig, log logger.Logger) *Dispatcher {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Dispatcher{
		transport:   t,
		interval:    cfg.Interval,
		callTimeout: cfg.CallTimeout,
		shared:      cfg.Shared,
		log:         log,
	}
}

// Dispatch sends message to every recipient in order and returns one outcome
// per recipient in the same order. A failed delivery never stops the loop.
// When ctx ends, the remaining recipients are reported as failed with the
// context error.
func (d *Dispatcher) Dispatch(ctx context.Context, message string, recipients []model.Participant) ([]Outcome, error) {
	return d.DispatchNotify(ctx, message, recipients, nil)
}

// DispatchNotify is Dispatch with a hook called after each attempt.
func (d *Dispatcher) DispatchNotify(ctx context.Context, message string, recipients []model.Participant, hook OutcomeHook) ([]Outcome, error) {
	body := strings.TrimSpace(message)
	if body == "" {
		return nil, model.NewValidationError(model.ReasonEmptyMessage, "message is empty")
	}
	if len(recipients) == 0 {
		return nil, model.NewValidationError(model.ReasonNoRecipients, "no recipients to deliver to")
	}

	throttle := NewThrottle(d.interval, d.shared)
	outcomes := make([]Outcome, 0, len(recipients))
	for _, r := range recipients {
		out := d.deliver(ctx, throttle, r, body)
		outcomes = append(outcomes, out)
		if out.Delivered() {
			d.log.Debugw("delivered", map[string]any{"recipient": r.ID, "latency_ms": out.Latency.Milliseconds()})
		} else {
			d.log.Warnf("delivery to %s (%s) failed: %v", r.Name, r.ID, out.Err)
		}
		if hook != nil {
			hook(out)
		}
	}
	return outcomes, nil
}

func (d *Dispatcher) deliver(ctx context.Context, throttle *Throttle, r model.Participant, body string) Outcome {
	out := Outcome{Recipient: r}
	if r.Phone == "" {
		return failed(out, ErrNoPhone)
	}
	var resp transport.Response
	called := false
	start := time.Now()
	err := throttle.Do(ctx, func(ctx context.Context) error {
		called = true
		start = time.Now()
		callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
		defer cancel()
		var err error
		resp, err = d.transport.Send(callCtx, r.Phone, body)
		return err
	})
	if called {
		out.Latency = time.Since(start)
	}
	if err != nil {
		return failed(out, err)
	}
	out.Status = StatusDelivered
	out.Detail = asJSON(resp)
	return out
}

func failed(out Outcome, err error) Outcome {
	out.Status = StatusFailed
	out.Err = err
	var pe *transport.ProviderError
	if errors.As(err, &pe) && len(pe.Payload) > 0 {
		out.Detail = asJSON(pe.Payload)
		return out
	}
	out.Detail = quote(err.Error())
	return out
}

// asJSON keeps valid JSON verbatim and quotes anything else.
func asJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	if json.Valid(b) {
		return json.RawMessage(append([]byte(nil), b...))
	}
	return quote(string(b))
}

func quote(s string) json.RawMessage {
	b, err := json.Marshal(s)
	if err != nil {
		return json.RawMessage(fmt.Sprintf("%q", s))
	}
	return b
}
