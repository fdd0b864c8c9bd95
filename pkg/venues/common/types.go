package common

import (
	"time"

	"github.com/google/uuid"
)

// VenueType classifies an execution venue by asset class.
type VenueType string

const (
	VenueCrypto    VenueType = "CRYPTO"
	VenueStock     VenueType = "STOCK"
	VenueForex     VenueType = "FOREX"
	VenueCommodity VenueType = "COMMODITY"
)

// Side denotes order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType denotes the order kinds a venue can accept.
type OrderType string

const (
	OrderTypeMarket       OrderType = "MARKET"
	OrderTypeLimit        OrderType = "LIMIT"
	OrderTypeStopLoss     OrderType = "STOP_LOSS"
	OrderTypeStopLimit    OrderType = "STOP_LIMIT"
	OrderTypeTrailingStop OrderType = "TRAILING_STOP"
)

// TimeInForce captures TIF semantics.
type TimeInForce string

const (
	TIFGTC TimeInForce = "GTC" // Good Till Cancelled
	TIFIOC TimeInForce = "IOC" // Immediate Or Cancel
	TIFFOK TimeInForce = "FOK" // Fill Or Kill
	TIFDay TimeInForce = "DAY" // Day Only
)

// VenueStatus normalizes venue-side order status into a small set.
type VenueStatus string

const (
	StatusPending         VenueStatus = "PENDING"
	StatusOpen            VenueStatus = "OPEN"
	StatusPartiallyFilled VenueStatus = "PARTIALLY_FILLED"
	StatusFilled          VenueStatus = "FILLED"
	StatusCancelled       VenueStatus = "CANCELLED"
	StatusRejected        VenueStatus = "REJECTED"
	StatusUnknown         VenueStatus = "UNKNOWN"
)

// OrderRequest captures an order intent to be sent to a venue.
type OrderRequest struct {
	OrderID     uuid.UUID // platform order id, echoed back in status reports
	ClientID    string    // caller-supplied correlation id
	Symbol      string
	Side        Side
	Type        OrderType
	Qty         float64
	Price       float64 // required for LIMIT / STOP_LIMIT
	StopPrice   float64 // required for STOP_LOSS / STOP_LIMIT
	TimeInForce TimeInForce
}

// SubmitAck returns the venue ack for a submitted order.
type SubmitAck struct {
	VenueOrderID string
	Status       VenueStatus
}

// StatusReport describes the venue-side view of an order.
type StatusReport struct {
	OrderID      uuid.UUID
	VenueOrderID string
	Status       VenueStatus
	FilledQty    float64
	RemainingQty float64
	AvgPrice     float64 // zero until something fills
	LastUpdate   time.Time
}

// MarketSnapshot is a point-in-time quote for a symbol.
type MarketSnapshot struct {
	Symbol    string
	Price     float64
	Bid       float64
	Ask       float64
	BidSize   float64
	AskSize   float64
	Volume    float64
	Timestamp time.Time
}

// AccountBalance reports venue account funds.
type AccountBalance struct {
	Total     float64
	Available float64
	Currency  string
	Assets    map[string]float64 // non-quote holdings by asset
	Timestamp time.Time
}

// Position is an open venue position.
type Position struct {
	Symbol        string
	Quantity      float64
	AvgPrice      float64
	CurrentPrice  float64
	UnrealizedPnL float64
	RealizedPnL   float64
	Timestamp     time.Time
}

// Config holds the connection settings for a venue adapter.
type Config struct {
	Name      string
	Type      VenueType
	BaseURL   string
	APIKey    string
	APISecret string
}
