// Package app wires configuration, adapters and the broadcast service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/teamcast/api"
	apibroadcast "github.com/kilianp07/teamcast/api/broadcast"
	apihistory "github.com/kilianp07/teamcast/api/history"
	"github.com/kilianp07/teamcast/config"
	"github.com/kilianp07/teamcast/core/broadcast"
	"github.com/kilianp07/teamcast/core/events"
	"github.com/kilianp07/teamcast/core/history"
	coremetrics "github.com/kilianp07/teamcast/core/metrics"
	coremon "github.com/kilianp07/teamcast/core/monitoring"
	coretransport "github.com/kilianp07/teamcast/core/transport"
	"github.com/kilianp07/teamcast/infra/logger"
	"github.com/kilianp07/teamcast/infra/metrics"
	"github.com/kilianp07/teamcast/infra/monitoring"
	"github.com/kilianp07/teamcast/infra/transport"
	"github.com/kilianp07/teamcast/internal/eventbus"
)

// Service holds every long-lived component of the process.
type Service struct {
	Broadcasts *broadcast.Service
	History    history.Store

	cfg        *config.Config
	transport  coretransport.Transport
	sink       coremetrics.MetricsSink
	broadcastB *eventbus.Bus[events.BroadcastEvent]
	outcomeB   *eventbus.Bus[events.OutcomeEvent]
	log        logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logger.SetLevel(cfg.Logging.Level)
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	tr, err := transport.New(cfg.Transport)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	store, err := history.Open(cfg.History)
	if err != nil {
		closeTransport(tr)
		return nil, fmt.Errorf("history: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		closeTransport(tr)
		_ = store.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	s := &Service{
		History:    store,
		cfg:        cfg,
		transport:  tr,
		sink:       sink,
		broadcastB: eventbus.New[events.BroadcastEvent](),
		outcomeB:   eventbus.NewWithBuffer[events.OutcomeEvent](64),
		log:        logg,
	}
	dispatcher := broadcast.NewDispatcher(tr, broadcast.DispatcherConfig{
		Interval:    cfg.Dispatch.Throttle(),
		CallTimeout: cfg.Dispatch.CallTimeout(),
		Shared:      broadcast.NewSharedLimiter(cfg.Dispatch.GlobalRatePerSec),
	}, logger.New("dispatcher"))
	s.Broadcasts = broadcast.NewService(broadcast.Deps{
		Dispatcher:      dispatcher,
		History:         store,
		Metrics:         sink,
		Logger:          logger.New("broadcast"),
		BroadcastEvents: s.broadcastB,
		OutcomeEvents:   s.outcomeB,
	})
	logg.Infof("using %s transport with %s throttle", coretransport.NameOf(tr), cfg.Dispatch.Throttle())
	return s, nil
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler { return s.handler(context.Background()) }

// handler builds the API with broadcasts stopping only when stop is canceled.
func (s *Service) handler(stop context.Context) http.Handler {
	bh := apibroadcast.NewHandler(s.Broadcasts, logger.New("api")).StopOn(stop)
	return api.NewRouter(api.Routes{
		Send:    bh.Send,
		Preview: bh.Preview,
		History: apihistory.NewHandler(s.History),
	}, s.cfg.Server.Token, logger.New("http"))
}

// Run serves the API until ctx is canceled, then shuts down gracefully.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.broadcastB, s.sink)
	s.watchOutcomes(ctx)
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{Addr: s.cfg.Server.Addr, Handler: s.handler(ctx), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// watchOutcomes logs every failed delivery with its recipient.
func (s *Service) watchOutcomes(ctx context.Context) {
	sub := s.outcomeB.Subscribe()
	log := logger.New("outcomes")
	go func() {
		defer s.outcomeB.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if !ev.Delivered {
					log.Warnf("broadcast %s: delivery to %s failed: %v", ev.BroadcastID, ev.Recipient.Name, ev.Err)
				}
			}
		}
	}()
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.broadcastB.Close()
	s.outcomeB.Close()
	closeTransport(s.transport)
	coremon.Flush(2 * time.Second)
	return s.History.Close()
}

func closeTransport(t coretransport.Transport) {
	if c, ok := t.(coretransport.Closer); ok {
		_ = c.Close()
	}
}
