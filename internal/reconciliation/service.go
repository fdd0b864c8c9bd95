// Package reconciliation polls venue-side order status for active
// orders and feeds the observed changes back into the order pipeline.
package reconciliation

import (
	"context"
	"log"
	"sync"
	"time"

	"execution-core/internal/order"
	"execution-core/pkg/venues/common"
)

// VenueRegistry resolves a venue adapter by name (typically the order
// router).
type VenueRegistry interface {
	Venue(name string) (common.Venue, bool)
}

// OrderPipeline is the slice of the order manager the reconciler needs:
// a snapshot of active orders and the event intake.
type OrderPipeline interface {
	ActiveOrders() []order.Order
	Publish(ev order.Event)
}

// Service periodically reconciles platform order state against venues.
type Service struct {
	registry VenueRegistry
	pipeline OrderPipeline
	interval time.Duration
	mu       sync.Mutex
}

// NewService creates a reconciliation service.
func NewService(registry VenueRegistry, pipeline OrderPipeline, interval time.Duration) *Service {
	return &Service{
		registry: registry,
		pipeline: pipeline,
		interval: interval,
	}
}

// Start begins periodic reconciliation until the context is cancelled.
func (s *Service) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := s.Reconcile(ctx); n > 0 {
					log.Printf("reconciliation: applied %d venue updates", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Printf("✓ reconciliation service started (interval: %v)", s.interval)
}

// Reconcile queries venue order status for every active order that has
// reached a venue and emits Update events for observed changes. It
// returns the number of events emitted.
func (s *Service) Reconcile(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	emitted := 0
	for _, o := range s.pipeline.ActiveOrders() {
		if o.Venue == "" {
			continue
		}
		if o.Status != order.StatusSubmitted && o.Status != order.StatusPartiallyFilled {
			continue
		}

		v, ok := s.registry.Venue(o.Venue)
		if !ok {
			log.Printf("reconciliation: order %s pinned to unknown venue %s", o.ID, o.Venue)
			continue
		}

		report, err := v.OrderStatus(ctx, o.ID)
		if err != nil {
			log.Printf("reconciliation: status query for %s on %s failed: %v", o.ID, o.Venue, err)
			continue
		}

		if ev, changed := diff(o, report); changed {
			s.pipeline.Publish(ev)
			emitted++
		}
	}
	return emitted
}

// diff converts a venue status report into an Update event, dropping
// reports that carry nothing new or a transition the state machine
// would reject anyway.
func diff(o order.Order, report common.StatusReport) (order.Event, bool) {
	var status *order.Status
	if mapped := statusFromVenue(report.Status); mapped != o.Status && order.CanTransition(o.Status, mapped) {
		status = &mapped
	}

	var filled *float64
	if report.FilledQty > o.FilledQty {
		q := report.FilledQty
		filled = &q
	}

	var avg *float64
	if report.AvgPrice > 0 {
		p := report.AvgPrice
		avg = &p
	}

	if status == nil && filled == nil {
		return order.Event{}, false
	}
	return order.UpdateEvent(o.ID, status, filled, avg), true
}

// statusFromVenue maps the venue-side status set onto the platform
// state machine.
func statusFromVenue(s common.VenueStatus) order.Status {
	switch s {
	case common.StatusPending:
		return order.StatusPendingSubmission
	case common.StatusOpen:
		return order.StatusSubmitted
	case common.StatusPartiallyFilled:
		return order.StatusPartiallyFilled
	case common.StatusFilled:
		return order.StatusFilled
	case common.StatusCancelled:
		return order.StatusCancelled
	case common.StatusRejected:
		return order.StatusRejected
	default:
		return order.StatusFailed
	}
}
