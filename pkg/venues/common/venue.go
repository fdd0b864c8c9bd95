package common

import (
	"context"

	"github.com/google/uuid"
)

// Venue abstracts an execution venue. New venues are added by providing
// a new implementation of this interface.
type Venue interface {
	Name() string
	Type() VenueType
	IsConnected() bool

	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	SupportedAssets(ctx context.Context) ([]string, error)
	MarketData(ctx context.Context, symbol string) (MarketSnapshot, error)

	SubmitOrder(ctx context.Context, req OrderRequest) (SubmitAck, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID) error
	OrderStatus(ctx context.Context, orderID uuid.UUID) (StatusReport, error)

	AccountBalance(ctx context.Context) (AccountBalance, error)
	Positions(ctx context.Context) ([]Position, error)
}
