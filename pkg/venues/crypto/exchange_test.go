package crypto

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"execution-core/pkg/venues/common"
)

func newTestExchange(t *testing.T) (*Exchange, *time.Time) {
	t.Helper()
	e := New(Config{
		Name:      "sim-crypto",
		BaseURL:   "https://sim.exchange.test",
		APIKey:    "key",
		APISecret: "secret",
	})
	base := time.Now()
	clock := base
	e.now = func() time.Time { return clock }
	if err := e.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return e, &clock
}

func marketReq() common.OrderRequest {
	return common.OrderRequest{
		OrderID:     uuid.New(),
		ClientID:    "test-1",
		Symbol:      "BTC/USD",
		Side:        common.SideBuy,
		Type:        common.OrderTypeMarket,
		Qty:         2,
		TimeInForce: common.TIFGTC,
	}
}

func TestConnectRequiresCredentials(t *testing.T) {
	e := New(Config{Name: "sim-crypto"})
	err := e.Connect(context.Background())
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("err = %v, want ErrMissingCredentials", err)
	}
	if e.IsConnected() {
		t.Error("exchange reports connected after failed Connect")
	}
}

func TestOperationsRequireConnection(t *testing.T) {
	e := New(Config{Name: "sim-crypto", APIKey: "key", APISecret: "secret"})
	ctx := context.Background()

	if _, err := e.SubmitOrder(ctx, marketReq()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SubmitOrder err = %v, want ErrNotConnected", err)
	}
	if err := e.CancelOrder(ctx, uuid.New()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("CancelOrder err = %v, want ErrNotConnected", err)
	}
	if _, err := e.OrderStatus(ctx, uuid.New()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("OrderStatus err = %v, want ErrNotConnected", err)
	}
	if _, err := e.AccountBalance(ctx); !errors.Is(err, ErrNotConnected) {
		t.Errorf("AccountBalance err = %v, want ErrNotConnected", err)
	}
	if _, err := e.MarketData(ctx, "BTC/USD"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("MarketData err = %v, want ErrNotConnected", err)
	}
}

func TestDisconnect(t *testing.T) {
	e, _ := newTestExchange(t)
	if err := e.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if e.IsConnected() {
		t.Error("still connected after Disconnect")
	}
}

func TestSubmitOrderAcksPending(t *testing.T) {
	e, _ := newTestExchange(t)
	req := marketReq()

	ack, err := e.SubmitOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if ack.VenueOrderID == "" {
		t.Error("ack carries no venue order id")
	}
	if ack.Status != common.StatusPending {
		t.Errorf("ack status = %s, want PENDING", ack.Status)
	}

	report, err := e.OrderStatus(context.Background(), req.OrderID)
	if err != nil {
		t.Fatalf("OrderStatus: %v", err)
	}
	if report.Status != common.StatusPending {
		t.Errorf("fresh order status = %s, want PENDING", report.Status)
	}
	if report.VenueOrderID != ack.VenueOrderID {
		t.Errorf("venue order id mismatch: %s vs %s", report.VenueOrderID, ack.VenueOrderID)
	}
}

func TestFillProgression(t *testing.T) {
	e, clock := newTestExchange(t)
	req := marketReq()
	ctx := context.Background()

	if _, err := e.SubmitOrder(ctx, req); err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	submitted := *clock

	// Under 2s nothing moves.
	*clock = submitted.Add(1 * time.Second)
	report, _ := e.OrderStatus(ctx, req.OrderID)
	if report.Status != common.StatusPending {
		t.Fatalf("status at 1s = %s, want PENDING", report.Status)
	}

	*clock = submitted.Add(3 * time.Second)
	report, _ = e.OrderStatus(ctx, req.OrderID)
	if report.Status != common.StatusOpen {
		t.Fatalf("status at 3s = %s, want OPEN", report.Status)
	}

	*clock = submitted.Add(6 * time.Second)
	report, _ = e.OrderStatus(ctx, req.OrderID)
	if report.Status != common.StatusPartiallyFilled {
		t.Fatalf("status at 6s = %s, want PARTIALLY_FILLED", report.Status)
	}
	if report.FilledQty != req.Qty/2 {
		t.Errorf("partial fill qty = %v, want %v", report.FilledQty, req.Qty/2)
	}
	if report.AvgPrice <= 0 {
		t.Error("partial fill carries no average price")
	}
	if report.RemainingQty != req.Qty-report.FilledQty {
		t.Errorf("remaining = %v, want %v", report.RemainingQty, req.Qty-report.FilledQty)
	}

	*clock = submitted.Add(11 * time.Second)
	report, _ = e.OrderStatus(ctx, req.OrderID)
	if report.Status != common.StatusFilled {
		t.Fatalf("status at 11s = %s, want FILLED", report.Status)
	}
	if report.FilledQty != req.Qty {
		t.Errorf("final fill qty = %v, want %v", report.FilledQty, req.Qty)
	}

	// Terminal state is sticky.
	*clock = submitted.Add(time.Minute)
	report, _ = e.OrderStatus(ctx, req.OrderID)
	if report.Status != common.StatusFilled {
		t.Errorf("status after fill = %s, want FILLED", report.Status)
	}
}

func TestProgressionAdvancesOneStagePerQuery(t *testing.T) {
	e, clock := newTestExchange(t)
	req := marketReq()
	ctx := context.Background()

	if _, err := e.SubmitOrder(ctx, req); err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}

	// Even far beyond every threshold, a single query only moves the
	// order one stage forward.
	*clock = clock.Add(time.Hour)
	report, _ := e.OrderStatus(ctx, req.OrderID)
	if report.Status != common.StatusOpen {
		t.Fatalf("first query status = %s, want OPEN", report.Status)
	}
	report, _ = e.OrderStatus(ctx, req.OrderID)
	if report.Status != common.StatusPartiallyFilled {
		t.Fatalf("second query status = %s, want PARTIALLY_FILLED", report.Status)
	}
	report, _ = e.OrderStatus(ctx, req.OrderID)
	if report.Status != common.StatusFilled {
		t.Fatalf("third query status = %s, want FILLED", report.Status)
	}
}

func TestCancelOrder(t *testing.T) {
	e, clock := newTestExchange(t)
	req := marketReq()
	ctx := context.Background()

	if _, err := e.SubmitOrder(ctx, req); err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if err := e.CancelOrder(ctx, req.OrderID); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}

	report, err := e.OrderStatus(ctx, req.OrderID)
	if err != nil {
		t.Fatalf("OrderStatus: %v", err)
	}
	if report.Status != common.StatusCancelled {
		t.Errorf("status = %s, want CANCELLED", report.Status)
	}

	// A cancelled order never resumes filling.
	*clock = clock.Add(time.Hour)
	report, _ = e.OrderStatus(ctx, req.OrderID)
	if report.Status != common.StatusCancelled {
		t.Errorf("status after cancel = %s, want CANCELLED", report.Status)
	}

	if err := e.CancelOrder(ctx, uuid.New()); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("cancel unknown err = %v, want ErrOrderNotFound", err)
	}
}

func TestOrderStatusUnknown(t *testing.T) {
	e, _ := newTestExchange(t)
	_, err := e.OrderStatus(context.Background(), uuid.New())
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestMarketData(t *testing.T) {
	e, _ := newTestExchange(t)
	snap, err := e.MarketData(context.Background(), "BTC/USD")
	if err != nil {
		t.Fatalf("MarketData: %v", err)
	}
	if snap.Symbol != "BTC/USD" {
		t.Errorf("symbol = %q", snap.Symbol)
	}
	if snap.Price <= 0 || snap.Bid >= snap.Ask {
		t.Errorf("implausible quote: price=%v bid=%v ask=%v", snap.Price, snap.Bid, snap.Ask)
	}
}

func TestAccountBalanceAndPositions(t *testing.T) {
	e, _ := newTestExchange(t)
	ctx := context.Background()

	bal, err := e.AccountBalance(ctx)
	if err != nil {
		t.Fatalf("AccountBalance: %v", err)
	}
	if bal.Currency != "USD" || bal.Total <= 0 || bal.Available > bal.Total {
		t.Errorf("implausible balance: %+v", bal)
	}

	positions, err := e.Positions(ctx)
	if err != nil {
		t.Fatalf("Positions: %v", err)
	}
	if len(positions) == 0 {
		t.Fatal("no positions returned")
	}
	for _, p := range positions {
		if p.Symbol == "" || p.Quantity == 0 {
			t.Errorf("implausible position: %+v", p)
		}
	}
}
