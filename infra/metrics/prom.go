package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/teamcast/core/metrics"
	"github.com/kilianp07/teamcast/core/model"
)

// PromSink records broadcast metrics in Prometheus collectors.
type PromSink struct {
	deliveries *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	broadcasts *prometheus.CounterVec
	recipients prometheus.Histogram
	rejections *prometheus.CounterVec
}

// NewPromSink registers the collectors on the default registerer. The
// /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers the collectors on reg. Collectors that
// are already registered are reused. A nil reg selects the default.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamcast_deliveries_total",
			Help: "Delivery attempts by provider, group and result",
		}, []string{"provider", "group", "delivered"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "teamcast_delivery_latency_seconds",
			Help:    "Duration of a single transport call",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "delivered"}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamcast_broadcasts_total",
			Help: "Completed broadcasts by target",
		}, []string{"target"}),
		recipients: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "teamcast_broadcast_recipients",
			Help:    "Number of recipients per broadcast",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 49},
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamcast_rejections_total",
			Help: "Broadcast requests rejected before dispatch",
		}, []string{"reason"}),
	}
	var err error
	if s.deliveries, err = register(reg, s.deliveries); err != nil {
		return nil, err
	}
	if s.latency, err = register(reg, s.latency); err != nil {
		return nil, err
	}
	if s.broadcasts, err = register(reg, s.broadcasts); err != nil {
		return nil, err
	}
	if s.recipients, err = register(reg, s.recipients); err != nil {
		return nil, err
	}
	if s.rejections, err = register(reg, s.rejections); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordDeliveries counts each delivery and observes its latency.
func (s *PromSink) RecordDeliveries(res []coremetrics.DeliveryResult) error {
	for _, r := range res {
		ok := strconv.FormatBool(r.Delivered)
		s.deliveries.WithLabelValues(r.Provider, string(r.Group), ok).Inc()
		if r.Latency > 0 {
			s.latency.WithLabelValues(r.Provider, ok).Observe(r.Latency.Seconds())
		}
	}
	return nil
}

// RecordBroadcast counts the broadcast and its audience size.
func (s *PromSink) RecordBroadcast(res coremetrics.BroadcastResult) error {
	s.broadcasts.WithLabelValues(res.Target).Inc()
	s.recipients.Observe(float64(res.Total))
	return nil
}

// RecordRejection counts a rejected request.
func (s *PromSink) RecordRejection(reason model.Reason) error {
	s.rejections.WithLabelValues(string(reason)).Inc()
	return nil
}
