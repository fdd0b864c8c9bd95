package events

// Event enumerates high-level topics inside the execution core.
type Event string

const (
	EventOrderNew       Event = "order.new"
	EventOrderUpdate    Event = "order.update"
	EventOrderCancelled Event = "order.cancelled"
	EventOrderRejected  Event = "order.rejected"
	EventOrderFailed    Event = "order.failed"
	EventOrderFilled    Event = "order.filled"
)
