package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"execution-core/pkg/venues/common"
)

// Status tracks an order through its lifecycle state machine.
type Status string

const (
	StatusCreated           Status = "CREATED"
	StatusPendingSubmission Status = "PENDING_SUBMISSION"
	StatusSubmitted         Status = "SUBMITTED"
	StatusPartiallyFilled   Status = "PARTIALLY_FILLED"
	StatusFilled            Status = "FILLED"
	StatusCancelled         Status = "CANCELLED"
	StatusRejected          Status = "REJECTED"
	StatusFailed            Status = "FAILED"
)

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusRejected, StatusFailed:
		return true
	}
	return false
}

// transitions is the full set of legal forward moves. Self-transitions
// are always permitted as no-ops and are not listed here.
var transitions = map[Status][]Status{
	StatusCreated:           {StatusPendingSubmission},
	StatusPendingSubmission: {StatusSubmitted, StatusRejected, StatusFailed},
	StatusSubmitted:         {StatusPartiallyFilled, StatusFilled, StatusCancelled, StatusRejected, StatusFailed},
	StatusPartiallyFilled:   {StatusFilled, StatusCancelled, StatusFailed},
}

// CanTransition reports whether moving from one status to another is
// legal. Illegal transitions are rejected by the caller, never silently
// applied.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Validation errors returned by Validate.
var (
	ErrEmptySymbol     = errors.New("order symbol cannot be empty")
	ErrNonPositiveQty  = errors.New("order quantity must be positive")
	ErrLimitNeedsPrice = errors.New("limit orders must specify a price")
	ErrMarketHasPrice  = errors.New("market orders must not carry a price")
	ErrStopNeedsStop   = errors.New("stop orders must specify a stop price")
)

// Order is the central entity of the execution core.
type Order struct {
	ID            uuid.UUID          `json:"id"`
	ClientOrderID string             `json:"client_order_id"`
	Symbol        string             `json:"symbol"`
	Side          common.Side        `json:"side"`
	Type          common.OrderType   `json:"type"`
	Quantity      float64            `json:"quantity"`
	FilledQty     float64            `json:"filled_quantity"`
	Price         *float64           `json:"price,omitempty"`
	StopPrice     *float64           `json:"stop_price,omitempty"`
	TimeInForce   common.TimeInForce `json:"time_in_force"`
	Status        Status             `json:"status"`
	Venue         string             `json:"venue,omitempty"` // empty means route by primary venue
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	FilledAt      *time.Time         `json:"filled_at,omitempty"`
	AvgFillPrice  *float64           `json:"average_fill_price,omitempty"`
	StrategyID    string             `json:"strategy_id,omitempty"`
	Notes         string             `json:"notes,omitempty"` // cancel/reject reasons
}

// Validate runs the static checks applied before an order is accepted.
func (o *Order) Validate() error {
	if o.Symbol == "" {
		return ErrEmptySymbol
	}
	if o.Quantity <= 0 {
		return ErrNonPositiveQty
	}
	switch o.Type {
	case common.OrderTypeLimit:
		if o.Price == nil {
			return ErrLimitNeedsPrice
		}
	case common.OrderTypeMarket:
		if o.Price != nil {
			return ErrMarketHasPrice
		}
	case common.OrderTypeStopLoss, common.OrderTypeStopLimit:
		if o.StopPrice == nil {
			return ErrStopNeedsStop
		}
	}
	return nil
}

// RemainingQty returns the unfilled quantity.
func (o *Order) RemainingQty() float64 {
	return o.Quantity - o.FilledQty
}

// IsFullyFilled reports whether the order has no remaining quantity.
func (o *Order) IsFullyFilled() bool {
	return o.FilledQty >= o.Quantity
}

func (o *Order) String() string {
	return fmt.Sprintf("%s %s %s qty=%.6f [%s]", o.ID, o.Side, o.Symbol, o.Quantity, o.Status)
}
