package monitoring

import (
	"errors"
	"regexp"
	"time"

	"github.com/getsentry/sentry-go"

	coremon "github.com/kilianp07/teamcast/core/monitoring"
)

// Config defines settings for Sentry error monitoring.
type Config struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Release          string  `json:"release"`
}

// phoneRun matches digit sequences long enough to be a phone number.
var phoneRun = regexp.MustCompile(`\+?\d[\d ]{6,}\d`)

// NewSentryMonitor initializes Sentry and returns a Monitor reporting to it.
// An empty DSN yields a NopMonitor.
func NewSentryMonitor(cfg Config) (coremon.Monitor, error) {
	if cfg.DSN == "" {
		return coremon.NopMonitor{}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		TracesSampleRate: cfg.TracesSampleRate,
		Release:          cfg.Release,
		BeforeSend:       scrubEvent,
	})
	if err != nil {
		return nil, err
	}
	return &sentryMonitor{}, nil
}

// scrubEvent masks phone numbers of recipients before an event leaves the
// process.
func scrubEvent(ev *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	ev.Message = scrub(ev.Message)
	for i := range ev.Exception {
		ev.Exception[i].Value = scrub(ev.Exception[i].Value)
	}
	return ev
}

func scrub(s string) string { return phoneRun.ReplaceAllString(s, "[phone]") }

type sentryMonitor struct{}

func (s *sentryMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", "broadcast")
		scope.SetTags(tags)
		var pe *coremon.PanicError
		if errors.As(err, &pe) {
			scope.SetLevel(sentry.LevelFatal)
			scope.SetExtra("stack", pe.Stack)
		}
		sentry.CaptureException(err)
	})
}

func (s *sentryMonitor) Flush(timeout time.Duration) { sentry.Flush(timeout) }
