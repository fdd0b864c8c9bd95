package monitor

import (
	"context"
	"fmt"
	"log"
	"time"

	"execution-core/internal/events"
	"execution-core/internal/order"
)

// Watcher tails order lifecycle notifications off the bus and folds
// them into counters. Failure notifications are forwarded to AlertFn.
type Watcher struct {
	Bus     *events.Bus
	Metrics *SystemMetrics
	AlertFn func(string)
}

func (w *Watcher) Start(ctx context.Context) {
	if w.Bus == nil || w.Metrics == nil {
		log.Println("monitor not fully configured; skipping")
		return
	}
	topics := []events.Event{
		events.EventOrderNew,
		events.EventOrderFilled,
		events.EventOrderCancelled,
		events.EventOrderRejected,
		events.EventOrderFailed,
	}
	for _, topic := range topics {
		stream, unsub := w.Bus.Subscribe(topic, 50)
		go func(topic events.Event, stream <-chan any) {
			defer unsub()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-stream:
					if !ok {
						return
					}
					w.observe(topic, msg)
				}
			}
		}(topic, stream)
	}
}

func (w *Watcher) observe(topic events.Event, msg any) {
	w.Metrics.IncrementEvents()
	switch topic {
	case events.EventOrderNew:
		w.Metrics.IncrementPlaced()
	case events.EventOrderFilled:
		w.Metrics.IncrementFilled()
		if o, ok := msg.(order.Order); ok && o.FilledAt != nil {
			w.Metrics.FillLatency.RecordDuration(o.FilledAt.Sub(o.CreatedAt))
		}
	case events.EventOrderCancelled:
		w.Metrics.IncrementCancelled()
	case events.EventOrderRejected:
		w.Metrics.IncrementRejected()
		w.alert(topic, msg)
	case events.EventOrderFailed:
		w.Metrics.IncrementFailed()
		w.Metrics.IncrementErrors()
		w.alert(topic, msg)
	}
}

func (w *Watcher) alert(topic events.Event, msg any) {
	if w.AlertFn == nil {
		return
	}
	w.AlertFn(formatAlert(topic, msg))
}

func formatAlert(topic events.Event, msg any) string {
	prefix := "[" + time.Now().Format(time.RFC3339) + "] " + string(topic)
	if o, ok := msg.(order.Order); ok {
		return fmt.Sprintf("%s: order %s %s %s: %s", prefix, o.ID, o.Side, o.Symbol, o.Notes)
	}
	return prefix
}
