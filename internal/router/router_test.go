package router

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"execution-core/internal/order"
	"execution-core/pkg/venues/common"
)

// fakeVenue is an in-memory venue adapter for router tests.
type fakeVenue struct {
	name      string
	connected bool

	mu        sync.Mutex
	submitted map[uuid.UUID]common.OrderRequest
	assets    []string
	submitErr error
}

func newFakeVenue(name string, assets ...string) *fakeVenue {
	return &fakeVenue{
		name:      name,
		connected: true,
		submitted: make(map[uuid.UUID]common.OrderRequest),
		assets:    assets,
	}
}

func (v *fakeVenue) Name() string           { return v.name }
func (v *fakeVenue) Type() common.VenueType { return common.VenueCrypto }
func (v *fakeVenue) IsConnected() bool      { return v.connected }

func (v *fakeVenue) Connect(ctx context.Context) error    { v.connected = true; return nil }
func (v *fakeVenue) Disconnect(ctx context.Context) error { v.connected = false; return nil }

func (v *fakeVenue) SupportedAssets(ctx context.Context) ([]string, error) {
	return v.assets, nil
}

func (v *fakeVenue) MarketData(ctx context.Context, symbol string) (common.MarketSnapshot, error) {
	return common.MarketSnapshot{Symbol: symbol, Price: 100}, nil
}

func (v *fakeVenue) SubmitOrder(ctx context.Context, req common.OrderRequest) (common.SubmitAck, error) {
	if v.submitErr != nil {
		return common.SubmitAck{}, v.submitErr
	}
	v.mu.Lock()
	v.submitted[req.OrderID] = req
	v.mu.Unlock()
	return common.SubmitAck{VenueOrderID: "V-" + req.OrderID.String(), Status: common.StatusPending}, nil
}

func (v *fakeVenue) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.submitted[orderID]; !ok {
		return errors.New("order not found on venue")
	}
	delete(v.submitted, orderID)
	return nil
}

func (v *fakeVenue) OrderStatus(ctx context.Context, orderID uuid.UUID) (common.StatusReport, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	req, ok := v.submitted[orderID]
	if !ok {
		return common.StatusReport{}, errors.New("order not found on venue")
	}
	return common.StatusReport{OrderID: orderID, Status: common.StatusOpen, RemainingQty: req.Qty}, nil
}

func (v *fakeVenue) AccountBalance(ctx context.Context) (common.AccountBalance, error) {
	return common.AccountBalance{Total: 1000, Available: 1000, Currency: "USD"}, nil
}

func (v *fakeVenue) Positions(ctx context.Context) ([]common.Position, error) {
	return nil, nil
}

func (v *fakeVenue) holds(id uuid.UUID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.submitted[id]
	return ok
}

func limitOrder(symbol string, price float64) order.Order {
	return order.Order{
		ID:       uuid.New(),
		Symbol:   symbol,
		Side:     common.SideBuy,
		Type:     common.OrderTypeLimit,
		Quantity: 1,
		Price:    &price,
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := New()
	if err := r.Register(newFakeVenue("sim")); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	err := r.Register(newFakeVenue("sim"))
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("err = %v, want ErrAlreadyRegistered", err)
	}
}

func TestSubmitOrderExplicitVenue(t *testing.T) {
	r := New()
	a := newFakeVenue("alpha")
	b := newFakeVenue("beta")
	_ = r.Register(a)
	_ = r.Register(b)
	r.SetPrimary("BTC/USD", "alpha")

	o := limitOrder("BTC/USD", 35000)
	o.Venue = "beta" // pinned venue overrides the primary map

	name, err := r.SubmitOrder(context.Background(), o)
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if name != "beta" {
		t.Errorf("resolved venue = %q, want beta", name)
	}
	if !b.holds(o.ID) {
		t.Error("order not delivered to pinned venue")
	}
	if a.holds(o.ID) {
		t.Error("order leaked to the primary venue")
	}
}

func TestSubmitOrderPrimaryVenue(t *testing.T) {
	r := New()
	v := newFakeVenue("sim")
	_ = r.Register(v)
	r.SetPrimary("BTC/USD", "sim")

	o := limitOrder("BTC/USD", 35000)
	name, err := r.SubmitOrder(context.Background(), o)
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if name != "sim" {
		t.Errorf("resolved venue = %q, want sim", name)
	}

	req := func() common.OrderRequest {
		v.mu.Lock()
		defer v.mu.Unlock()
		return v.submitted[o.ID]
	}()
	if req.Price != 35000 {
		t.Errorf("request price = %v, want 35000", req.Price)
	}
	if req.TimeInForce != o.TimeInForce {
		t.Errorf("request TIF = %v, want %v", req.TimeInForce, o.TimeInForce)
	}
}

func TestSubmitOrderNoPrimary(t *testing.T) {
	r := New()
	_ = r.Register(newFakeVenue("sim"))

	_, err := r.SubmitOrder(context.Background(), limitOrder("UNROUTED/USD", 10))
	if !errors.Is(err, ErrNoPrimaryVenue) {
		t.Fatalf("err = %v, want ErrNoPrimaryVenue", err)
	}
}

func TestSubmitOrderUnknownVenue(t *testing.T) {
	r := New()
	o := limitOrder("BTC/USD", 35000)
	o.Venue = "ghost"

	_, err := r.SubmitOrder(context.Background(), o)
	if !errors.Is(err, ErrVenueNotFound) {
		t.Fatalf("err = %v, want ErrVenueNotFound", err)
	}
}

func TestCancelOrderProbesVenues(t *testing.T) {
	r := New()
	a := newFakeVenue("alpha")
	b := newFakeVenue("beta")
	_ = r.Register(a)
	_ = r.Register(b)
	r.SetPrimary("BTC/USD", "beta")

	o := limitOrder("BTC/USD", 35000)
	if _, err := r.SubmitOrder(context.Background(), o); err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}

	// alpha rejects the cancel, beta holds the order.
	if err := r.CancelOrder(context.Background(), o.ID); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if b.holds(o.ID) {
		t.Error("order still held after cancel")
	}

	if err := r.CancelOrder(context.Background(), uuid.New()); err == nil {
		t.Fatal("cancel of unknown order must fail")
	}
}

func TestCancelOrderNoVenues(t *testing.T) {
	r := New()
	err := r.CancelOrder(context.Background(), uuid.New())
	if !errors.Is(err, ErrNoVenues) {
		t.Fatalf("err = %v, want ErrNoVenues", err)
	}
}

func TestSupportedAssetsUnion(t *testing.T) {
	r := New()
	_ = r.Register(newFakeVenue("alpha", "BTC/USD", "ETH/USD"))
	_ = r.Register(newFakeVenue("beta", "ETH/USD", "SOL/USD"))

	assets := r.SupportedAssets(context.Background())
	want := map[string]bool{"BTC/USD": true, "ETH/USD": true, "SOL/USD": true}
	if len(assets) != len(want) {
		t.Fatalf("got %d assets %v, want %d", len(assets), assets, len(want))
	}
	for _, a := range assets {
		if !want[a] {
			t.Errorf("unexpected asset %q", a)
		}
	}
}
