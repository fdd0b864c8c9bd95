package order

import (
	"time"

	"github.com/google/uuid"
)

// EventKind tags a lifecycle event variant.
type EventKind string

const (
	EventNew    EventKind = "NEW"
	EventUpdate EventKind = "UPDATE"
	EventCancel EventKind = "CANCEL"
	EventReject EventKind = "REJECT"
	EventError  EventKind = "ERROR"
)

// Event is an internal message describing a requested or observed
// change to an order's state. Events are produced by submission tasks
// and venue reconciliation and consumed exactly once by the pipeline
// worker.
type Event struct {
	Kind      EventKind
	Order     *Order    // NEW only
	OrderID   uuid.UUID // uuid.Nil allowed for ERROR
	Status    *Status   // UPDATE: optional new status
	FilledQty *float64  // UPDATE: optional cumulative fill
	AvgPrice  *float64  // UPDATE: optional average fill price
	Reason    string    // CANCEL / REJECT
	Message   string    // ERROR
	Timestamp time.Time
}

// NewEvent announces a freshly stored order. Informational only: the
// order is already persisted by the issuing call.
func NewEvent(o Order) Event {
	return Event{Kind: EventNew, Order: &o, OrderID: o.ID, Timestamp: time.Now()}
}

// UpdateEvent carries a status/fill mutation for an order.
func UpdateEvent(id uuid.UUID, status *Status, filledQty, avgPrice *float64) Event {
	return Event{
		Kind:      EventUpdate,
		OrderID:   id,
		Status:    status,
		FilledQty: filledQty,
		AvgPrice:  avgPrice,
		Timestamp: time.Now(),
	}
}

// CancelEvent marks an order cancelled for the given reason.
func CancelEvent(id uuid.UUID, reason string) Event {
	return Event{Kind: EventCancel, OrderID: id, Reason: reason, Timestamp: time.Now()}
}

// RejectEvent marks an order rejected for the given reason.
func RejectEvent(id uuid.UUID, reason string) Event {
	return Event{Kind: EventReject, OrderID: id, Reason: reason, Timestamp: time.Now()}
}

// ErrorEvent records a processing failure. The order id may be Nil when
// the failure is not attributable to a single order.
func ErrorEvent(id uuid.UUID, message string) Event {
	return Event{Kind: EventError, OrderID: id, Message: message, Timestamp: time.Now()}
}
