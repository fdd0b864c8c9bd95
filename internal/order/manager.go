package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"execution-core/internal/events"
)

var (
	ErrOrderNotActive = errors.New("order not found or not active")
	ErrNotCancellable = errors.New("order cannot be cancelled")
)

// Router forwards submit/cancel calls to the venue selected for an
// order. Implemented by internal/router.
type Router interface {
	// SubmitOrder resolves a venue for the order, delegates the
	// submission, and returns the resolved venue name.
	SubmitOrder(ctx context.Context, o Order) (string, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID) error
}

// DefaultEventBuffer is the pipeline channel capacity. Producers block
// when the buffer is full; lifecycle events are never dropped.
const DefaultEventBuffer = 100

// Manager owns the authoritative order store and the active-order
// subset. All status mutations flow either through the single pipeline
// worker or through short critical sections that never span a venue
// call.
type Manager struct {
	router Router
	bus    *events.Bus

	// One lock covers both maps: entries alias the same Order records,
	// so store and active set always mutate consistently.
	mu     sync.RWMutex
	orders map[uuid.UUID]*Order
	active map[uuid.UUID]*Order

	eventCh chan Event
	stopCh  chan struct{}
	stop    sync.Once
	wg      sync.WaitGroup
}

// NewManager creates an order manager. bufferSize <= 0 selects
// DefaultEventBuffer.
func NewManager(router Router, bus *events.Bus, bufferSize int) *Manager {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBuffer
	}
	return &Manager{
		router:  router,
		bus:     bus,
		orders:  make(map[uuid.UUID]*Order),
		active:  make(map[uuid.UUID]*Order),
		eventCh: make(chan Event, bufferSize),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the single pipeline worker that drains lifecycle
// events in arrival order. Exactly one consumer guarantees a total
// order of applied mutations per order.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		log.Println("manager: order event pipeline started")
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case ev := <-m.eventCh:
				m.apply(ev)
			}
		}
	}()
}

// Close stops the pipeline worker and waits for in-flight submission
// tasks to resolve.
func (m *Manager) Close() {
	m.stop.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

// PlaceOrder validates and stores an order, then drives submission
// asynchronously through the router. The returned id is final upon
// validated acceptance; submission outcome must be polled via GetOrder.
func (m *Manager) PlaceOrder(ctx context.Context, o Order) (uuid.UUID, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	o.Status = StatusCreated
	o.FilledQty = 0
	o.FilledAt = nil
	o.AvgFillPrice = nil

	if err := o.Validate(); err != nil {
		return uuid.Nil, fmt.Errorf("order validation: %w", err)
	}

	stored := o
	m.mu.Lock()
	m.orders[o.ID] = &stored
	m.active[o.ID] = &stored
	m.mu.Unlock()

	m.emit(NewEvent(o))

	m.wg.Add(1)
	go m.submit(o)

	return o.ID, nil
}

// submit is the fire-and-forget submission task spawned per order. An
// in-flight submission always resolves to Submitted or Failed.
func (m *Manager) submit(o Order) {
	defer m.wg.Done()

	if !m.transition(o.ID, StatusPendingSubmission) {
		// Cancelled before submission got underway.
		return
	}

	// The caller has already moved on; submission outlives its request.
	ctx := context.Background()
	venue, err := m.router.SubmitOrder(ctx, o)
	if err != nil {
		log.Printf("manager: submission failed for order %s: %v", o.ID, err)
		m.resolveFailed(o.ID, err.Error())
		m.emit(ErrorEvent(o.ID, err.Error()))
		return
	}

	m.mu.Lock()
	if cur, ok := m.orders[o.ID]; ok && cur.Venue == "" {
		cur.Venue = venue
	}
	m.mu.Unlock()

	if !m.transition(o.ID, StatusSubmitted) {
		return
	}
	st := StatusSubmitted
	m.emit(UpdateEvent(o.ID, &st, nil, nil))
}

// CancelOrder cancels an active order. Orders that never reached the
// venue are cancelled locally; otherwise the venue cancel is
// best-effort and local state stays authoritative for the caller.
func (m *Manager) CancelOrder(ctx context.Context, id uuid.UUID, reason string) error {
	m.mu.RLock()
	cur, ok := m.active[id]
	var status Status
	if ok {
		status = cur.Status
	}
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotActive, id)
	}
	switch status {
	case StatusCreated, StatusSubmitted, StatusPartiallyFilled:
	default:
		return fmt.Errorf("%w: order %s in status %s", ErrNotCancellable, id, status)
	}

	if status != StatusCreated {
		// Lock released before the venue call; see resolveCancel below.
		if err := m.router.CancelOrder(ctx, id); err != nil {
			log.Printf("manager: venue cancel failed for order %s, applying local cancel: %v", id, err)
		}
	}

	m.resolveCancel(id, reason)
	m.emit(CancelEvent(id, reason))
	return nil
}

// GetOrder returns a snapshot of an order from the full store.
func (m *Manager) GetOrder(id uuid.UUID) (Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// ActiveOrders returns snapshots of all non-terminal orders.
func (m *Manager) ActiveOrders() []Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Order, 0, len(m.active))
	for _, o := range m.active {
		out = append(out, *o)
	}
	return out
}

// Publish feeds an externally produced lifecycle event (venue
// reconciliation, adapters) into the pipeline. Blocks when the buffer
// is full rather than dropping.
func (m *Manager) Publish(ev Event) {
	m.emit(ev)
}

// --- Pipeline worker ---

func (m *Manager) emit(ev Event) {
	select {
	case m.eventCh <- ev:
	case <-m.stopCh:
		log.Printf("manager: pipeline stopped, discarding %s event for %s", ev.Kind, ev.OrderID)
	}
}

// apply executes exactly one event against the store. Unknown order
// ids are logged and discarded; the pipeline never halts on a stale or
// duplicate event.
func (m *Manager) apply(ev Event) {
	switch ev.Kind {
	case EventNew:
		if ev.Order != nil {
			m.publish(events.EventOrderNew, *ev.Order)
		}
	case EventUpdate:
		m.applyUpdate(ev)
	case EventCancel:
		m.applyForced(ev.OrderID, StatusCancelled, ev.Reason, ev.Timestamp, events.EventOrderCancelled)
	case EventReject:
		m.applyForced(ev.OrderID, StatusRejected, ev.Reason, ev.Timestamp, events.EventOrderRejected)
	case EventError:
		if ev.OrderID == uuid.Nil {
			log.Printf("manager: pipeline error event: %s", ev.Message)
			return
		}
		m.applyForced(ev.OrderID, StatusFailed, ev.Message, ev.Timestamp, events.EventOrderFailed)
	default:
		log.Printf("manager: unknown event kind %q", ev.Kind)
	}
}

func (m *Manager) applyUpdate(ev Event) {
	m.mu.Lock()
	o, ok := m.orders[ev.OrderID]
	if !ok {
		m.mu.Unlock()
		log.Printf("manager: update for unknown order %s, discarded", ev.OrderID)
		return
	}

	if ev.Status != nil && *ev.Status != o.Status {
		if !CanTransition(o.Status, *ev.Status) {
			m.mu.Unlock()
			log.Printf("manager: rejected transition %s -> %s for order %s", o.Status, *ev.Status, ev.OrderID)
			return
		}
		o.Status = *ev.Status
	}
	if ev.FilledQty != nil {
		switch q := *ev.FilledQty; {
		case q < o.FilledQty:
			log.Printf("manager: ignoring fill regression %.6f -> %.6f for order %s", o.FilledQty, q, ev.OrderID)
		case q > o.Quantity:
			log.Printf("manager: clamping overfill %.6f to quantity %.6f for order %s", q, o.Quantity, ev.OrderID)
			o.FilledQty = o.Quantity
		default:
			o.FilledQty = q
		}
	}
	if ev.AvgPrice != nil && *ev.AvgPrice > 0 && o.FilledQty > 0 {
		p := *ev.AvgPrice
		o.AvgFillPrice = &p
	}
	o.UpdatedAt = ev.Timestamp

	if o.Status.IsTerminal() {
		if o.Status == StatusFilled && o.FilledAt == nil {
			t := ev.Timestamp
			o.FilledAt = &t
		}
		delete(m.active, ev.OrderID)
	}
	snapshot := *o
	m.mu.Unlock()

	topic := events.EventOrderUpdate
	if snapshot.Status == StatusFilled {
		topic = events.EventOrderFilled
	}
	m.publish(topic, snapshot)
}

// applyForced sets a terminal status without consulting the transition
// table: cancel/reject/error events carry authority over the order.
func (m *Manager) applyForced(id uuid.UUID, status Status, note string, ts time.Time, topic events.Event) {
	m.mu.Lock()
	o, ok := m.orders[id]
	if !ok {
		m.mu.Unlock()
		log.Printf("manager: %s for unknown order %s, discarded", status, id)
		return
	}
	o.Status = status
	if note != "" {
		o.Notes = note
	}
	o.UpdatedAt = ts
	delete(m.active, id)
	snapshot := *o
	m.mu.Unlock()

	m.publish(topic, snapshot)
}

// --- Internal helpers ---

// transition applies a table-checked status move under the write lock.
func (m *Manager) transition(id uuid.UUID, to Status) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		log.Printf("manager: transition target %s not found", id)
		return false
	}
	if !CanTransition(o.Status, to) {
		log.Printf("manager: illegal transition %s -> %s for order %s", o.Status, to, id)
		return false
	}
	if o.Status == to {
		return true
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	if to.IsTerminal() {
		if to == StatusFilled && o.FilledAt == nil {
			t := o.UpdatedAt
			o.FilledAt = &t
		}
		delete(m.active, id)
	}
	return true
}

// resolveFailed rolls a failed submission out of the active set while
// keeping its historical record.
func (m *Manager) resolveFailed(id uuid.UUID, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return
	}
	o.Status = StatusFailed
	o.Notes = msg
	o.UpdatedAt = time.Now()
	delete(m.active, id)
}

func (m *Manager) resolveCancel(id uuid.UUID, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return
	}
	o.Status = StatusCancelled
	o.Notes = reason
	o.UpdatedAt = time.Now()
	delete(m.active, id)
	log.Printf("manager: cancelled order %s: %s", id, reason)
}

func (m *Manager) publish(topic events.Event, snapshot Order) {
	if m.bus != nil {
		m.bus.Publish(topic, snapshot)
	}
}
