// Package crypto implements a simulated cryptocurrency venue adapter.
// It honors the full venue capability contract while faking exchange
// latency and fill progression; a real adapter replaces the simulated
// I/O and keeps the same interface.
package crypto

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"execution-core/pkg/venues/common"
)

var (
	ErrNotConnected       = errors.New("not connected to venue")
	ErrMissingCredentials = errors.New("api key and secret are required")
	ErrOrderNotFound      = errors.New("order not found on venue")
)

// Config holds the connection settings for the simulated venue.
type Config struct {
	Name      string
	BaseURL   string
	APIKey    string
	APISecret string
	Latency   time.Duration // simulated round-trip per API call
}

// Exchange is a simulated crypto venue. It keeps a per-order shadow
// state (venue order id, fill progression) that is venue-local and not
// authoritative for the platform.
type Exchange struct {
	cfg     Config
	limiter *rate.Limiter
	now     func() time.Time

	mu        sync.Mutex
	connected bool
	orders    map[uuid.UUID]*orderState
}

type orderState struct {
	req          common.OrderRequest
	venueOrderID string
	status       common.VenueStatus
	filledQty    float64
	avgPrice     float64
	lastUpdate   time.Time
}

// New creates a simulated crypto venue adapter.
func New(cfg Config) *Exchange {
	return &Exchange{
		cfg: cfg,
		// 20 req/s with small bursts, roughly one weight-1 call per 50ms
		limiter: rate.NewLimiter(rate.Limit(20), 5),
		now:     time.Now,
		orders:  make(map[uuid.UUID]*orderState),
	}
}

func (e *Exchange) Name() string           { return e.cfg.Name }
func (e *Exchange) Type() common.VenueType { return common.VenueCrypto }

func (e *Exchange) IsConnected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connected
}

// Connect authenticates against the venue. It fails when credentials
// are absent, mirroring a real key-signed exchange session.
func (e *Exchange) Connect(ctx context.Context) error {
	if e.cfg.APIKey == "" || e.cfg.APISecret == "" {
		log.Printf("crypto: missing API credentials for %s", e.cfg.Name)
		return ErrMissingCredentials
	}

	if err := e.roundTrip(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	e.connected = true
	e.mu.Unlock()

	log.Printf("crypto: connected to %s (%s)", e.cfg.Name, e.cfg.BaseURL)
	return nil
}

func (e *Exchange) Disconnect(ctx context.Context) error {
	e.mu.Lock()
	e.connected = false
	e.mu.Unlock()

	log.Printf("crypto: disconnected from %s", e.cfg.Name)
	return nil
}

func (e *Exchange) SupportedAssets(ctx context.Context) ([]string, error) {
	if err := e.ensureConnected(); err != nil {
		return nil, err
	}
	if err := e.roundTrip(ctx); err != nil {
		return nil, err
	}
	return []string{
		"BTC/USD", "ETH/USD", "BNB/USD", "XRP/USD", "SOL/USD", "ADA/USD", "DOGE/USD",
	}, nil
}

func (e *Exchange) MarketData(ctx context.Context, symbol string) (common.MarketSnapshot, error) {
	if err := e.ensureConnected(); err != nil {
		return common.MarketSnapshot{}, err
	}
	return e.ticker(ctx, symbol)
}

// SubmitOrder records the order in the venue-local shadow book and acks
// it as PENDING. Fill progression is driven by OrderStatus queries.
func (e *Exchange) SubmitOrder(ctx context.Context, req common.OrderRequest) (common.SubmitAck, error) {
	if err := e.ensureConnected(); err != nil {
		return common.SubmitAck{}, err
	}
	if err := e.roundTrip(ctx); err != nil {
		return common.SubmitAck{}, err
	}

	venueOrderID := fmt.Sprintf("EX-%s", uuid.New().String())

	e.mu.Lock()
	e.orders[req.OrderID] = &orderState{
		req:          req,
		venueOrderID: venueOrderID,
		status:       common.StatusPending,
		lastUpdate:   e.now(),
	}
	e.mu.Unlock()

	log.Printf("crypto: %s accepted order %s %s %s qty=%.6f (venue id %s)",
		e.cfg.Name, req.OrderID, req.Side, req.Symbol, req.Qty, venueOrderID)

	return common.SubmitAck{VenueOrderID: venueOrderID, Status: common.StatusPending}, nil
}

func (e *Exchange) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	if err := e.ensureConnected(); err != nil {
		return err
	}

	e.mu.Lock()
	st, ok := e.orders[orderID]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	if err := e.roundTrip(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	st.status = common.StatusCancelled
	st.lastUpdate = e.now()
	e.mu.Unlock()

	log.Printf("crypto: %s cancelled order %s (venue id %s)", e.cfg.Name, orderID, st.venueOrderID)
	return nil
}

// OrderStatus reports the venue-side view of an order, advancing the
// simulated fill one stage per query based on elapsed time since the
// order last changed: PENDING opens after 2s, OPEN half-fills after 5s,
// and a partial fill completes after 10s.
func (e *Exchange) OrderStatus(ctx context.Context, orderID uuid.UUID) (common.StatusReport, error) {
	if err := e.ensureConnected(); err != nil {
		return common.StatusReport{}, err
	}

	e.mu.Lock()
	st, ok := e.orders[orderID]
	if !ok {
		e.mu.Unlock()
		return common.StatusReport{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	snapshot := *st
	e.mu.Unlock()

	elapsed := e.now().Sub(snapshot.lastUpdate)
	switch {
	case elapsed > 2*time.Second && snapshot.status == common.StatusPending:
		snapshot.status = common.StatusOpen
	case elapsed > 5*time.Second && snapshot.status == common.StatusOpen:
		snapshot.status = common.StatusPartiallyFilled
		snapshot.filledQty = snapshot.req.Qty * 0.5
		tick, err := e.ticker(ctx, snapshot.req.Symbol)
		if err != nil {
			return common.StatusReport{}, err
		}
		snapshot.avgPrice = tick.Price
	case elapsed > 10*time.Second && snapshot.status == common.StatusPartiallyFilled:
		snapshot.status = common.StatusFilled
		snapshot.filledQty = snapshot.req.Qty
	}

	e.mu.Lock()
	if cur, ok := e.orders[orderID]; ok {
		cur.status = snapshot.status
		cur.filledQty = snapshot.filledQty
		cur.avgPrice = snapshot.avgPrice
	}
	e.mu.Unlock()

	return common.StatusReport{
		OrderID:      orderID,
		VenueOrderID: snapshot.venueOrderID,
		Status:       snapshot.status,
		FilledQty:    snapshot.filledQty,
		RemainingQty: snapshot.req.Qty - snapshot.filledQty,
		AvgPrice:     snapshot.avgPrice,
		LastUpdate:   snapshot.lastUpdate,
	}, nil
}

func (e *Exchange) AccountBalance(ctx context.Context) (common.AccountBalance, error) {
	if err := e.ensureConnected(); err != nil {
		return common.AccountBalance{}, err
	}
	if err := e.roundTrip(ctx); err != nil {
		return common.AccountBalance{}, err
	}
	return common.AccountBalance{
		Total:     100000.0,
		Available: 75000.0,
		Currency:  "USD",
		Assets: map[string]float64{
			"BTC": 1.5,
			"ETH": 20.0,
			"SOL": 100.0,
		},
		Timestamp: e.now(),
	}, nil
}

func (e *Exchange) Positions(ctx context.Context) ([]common.Position, error) {
	if err := e.ensureConnected(); err != nil {
		return nil, err
	}
	if err := e.roundTrip(ctx); err != nil {
		return nil, err
	}
	now := e.now()
	return []common.Position{
		{Symbol: "BTC/USD", Quantity: 1.5, AvgPrice: 34500, CurrentPrice: 35200, UnrealizedPnL: 1.5 * 700, RealizedPnL: 2500, Timestamp: now},
		{Symbol: "ETH/USD", Quantity: 20, AvgPrice: 2100, CurrentPrice: 2250, UnrealizedPnL: 20 * 150, RealizedPnL: 1200, Timestamp: now},
		{Symbol: "SOL/USD", Quantity: 100, AvgPrice: 80, CurrentPrice: 82.5, UnrealizedPnL: 100 * 2.5, RealizedPnL: 500, Timestamp: now},
	}, nil
}

// --- Internal helpers ---

func (e *Exchange) ensureConnected() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return ErrNotConnected
	}
	return nil
}

// roundTrip paces simulated API calls and applies the configured latency.
func (e *Exchange) roundTrip(ctx context.Context) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return err
	}
	if e.cfg.Latency > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.cfg.Latency):
		}
	}
	return nil
}

func (e *Exchange) ticker(ctx context.Context, symbol string) (common.MarketSnapshot, error) {
	if err := e.roundTrip(ctx); err != nil {
		return common.MarketSnapshot{}, err
	}

	price := 35000.0 + rand.Float64()*1000.0
	spread := price * 0.001

	return common.MarketSnapshot{
		Symbol:    symbol,
		Price:     price,
		Bid:       price - spread/2,
		Ask:       price + spread/2,
		BidSize:   1.5,
		AskSize:   1.2,
		Volume:    100.0 + rand.Float64()*50.0,
		Timestamp: e.now(),
	}, nil
}
