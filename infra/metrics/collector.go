package metrics

import (
	"context"

	"github.com/kilianp07/teamcast/core/events"
	coremetrics "github.com/kilianp07/teamcast/core/metrics"
	"github.com/kilianp07/teamcast/internal/eventbus"
)

// StartEventCollector records rejections published on bus until ctx is
// canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[events.BroadcastEvent], sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	rec, ok := sink.(coremetrics.RejectionRecorder)
	if !ok {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if ev.Stage == events.StageRejected {
					_ = rec.RecordRejection(ev.Reason)
				}
			}
		}
	}()
}
