package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/teamcast/core/metrics"
	"github.com/kilianp07/teamcast/core/model"
	"github.com/kilianp07/teamcast/infra/logger"
)

// InfluxConfig selects the InfluxDB target.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes broadcast points to InfluxDB.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given endpoint. A trailing
// /api/v2/write is accepted.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings InfluxDB and returns a NopSink when the
// health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordDeliveries writes one delivery point per recipient.
func (s *InfluxSink) RecordDeliveries(res []coremetrics.DeliveryResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, r := range res {
		p := write.NewPointWithMeasurement("delivery").
			AddTag("broadcast_id", r.BroadcastID).
			AddTag("recipient_id", r.RecipientID).
			AddTag("group", string(r.Group)).
			AddTag("provider", r.Provider).
			AddTag("delivered", strconv.FormatBool(r.Delivered)).
			AddField("latency_ms", r.Latency.Milliseconds()).
			SetTime(r.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordBroadcast writes the summary point of a broadcast.
func (s *InfluxSink) RecordBroadcast(res coremetrics.BroadcastResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("broadcast").
		AddTag("broadcast_id", res.BroadcastID).
		AddTag("target", res.Target).
		AddField("total", res.Total).
		AddField("delivered", res.Delivered).
		AddField("failed", res.Failed).
		AddField("duration_ms", res.Duration.Milliseconds()).
		SetTime(res.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRejection writes a rejection point.
func (s *InfluxSink) RecordRejection(reason model.Reason) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("rejection").
		AddTag("reason", string(reason)).
		AddField("count", 1).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }
