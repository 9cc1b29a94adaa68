package metrics

import (
	"context"

	"github.com/raikasdev/howareya/core/events"
	coremetrics "github.com/raikasdev/howareya/core/metrics"
	"github.com/raikasdev/howareya/infra/logger"
	"github.com/raikasdev/howareya/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and forwards booking
// events to the sink. It returns a channel closed once the collector has
// stopped, which happens when ctx is canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := forward(sink, ev); err != nil {
					log.Warnf("record metrics: %v", err)
				}
			}
		}
	}()
	return done
}

func forward(sink coremetrics.MetricsSink, ev eventbus.Event) error {
	if e, ok := ev.(events.RunCompleted); ok {
		return sink.RecordRun(e.Report)
	}
	return nil
}
