package order

import (
	"testing"

	"execution-core/pkg/venues/common"
)

func fptr(v float64) *float64 { return &v }

func TestCanTransition(t *testing.T) {
	all := []Status{
		StatusCreated, StatusPendingSubmission, StatusSubmitted,
		StatusPartiallyFilled, StatusFilled, StatusCancelled,
		StatusRejected, StatusFailed,
	}

	legal := map[Status][]Status{
		StatusCreated:           {StatusPendingSubmission},
		StatusPendingSubmission: {StatusSubmitted, StatusRejected, StatusFailed},
		StatusSubmitted:         {StatusPartiallyFilled, StatusFilled, StatusCancelled, StatusRejected, StatusFailed},
		StatusPartiallyFilled:   {StatusFilled, StatusCancelled, StatusFailed},
	}

	for _, from := range all {
		allowed := map[Status]bool{from: true} // self-transition is a no-op
		for _, to := range legal[from] {
			allowed[to] = true
		}
		for _, to := range all {
			got := CanTransition(from, to)
			if got != allowed[to] {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, allowed[to])
			}
		}
	}
}

func TestTerminalStatusesAllowNothing(t *testing.T) {
	for _, s := range []Status{StatusFilled, StatusCancelled, StatusRejected, StatusFailed} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
		for _, to := range []Status{StatusCreated, StatusSubmitted, StatusPartiallyFilled, StatusFilled} {
			if s == to {
				continue
			}
			if CanTransition(s, to) {
				t.Errorf("terminal %s must not transition to %s", s, to)
			}
		}
	}
	for _, s := range []Status{StatusCreated, StatusPendingSubmission, StatusSubmitted, StatusPartiallyFilled} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		order   Order
		wantErr error
	}{
		{
			name:  "valid limit order",
			order: Order{Symbol: "BTC/USD", Side: common.SideBuy, Type: common.OrderTypeLimit, Quantity: 1, Price: fptr(35000)},
		},
		{
			name:  "valid market order",
			order: Order{Symbol: "ETH/USD", Side: common.SideSell, Type: common.OrderTypeMarket, Quantity: 2},
		},
		{
			name:  "valid stop loss",
			order: Order{Symbol: "BTC/USD", Side: common.SideSell, Type: common.OrderTypeStopLoss, Quantity: 1, StopPrice: fptr(30000)},
		},
		{
			name:    "empty symbol",
			order:   Order{Side: common.SideBuy, Type: common.OrderTypeMarket, Quantity: 1},
			wantErr: ErrEmptySymbol,
		},
		{
			name:    "zero quantity",
			order:   Order{Symbol: "BTC/USD", Side: common.SideBuy, Type: common.OrderTypeMarket, Quantity: 0},
			wantErr: ErrNonPositiveQty,
		},
		{
			name:    "negative quantity",
			order:   Order{Symbol: "BTC/USD", Side: common.SideBuy, Type: common.OrderTypeMarket, Quantity: -1},
			wantErr: ErrNonPositiveQty,
		},
		{
			name:    "limit without price",
			order:   Order{Symbol: "BTC/USD", Side: common.SideBuy, Type: common.OrderTypeLimit, Quantity: 1},
			wantErr: ErrLimitNeedsPrice,
		},
		{
			name:    "market with price",
			order:   Order{Symbol: "BTC/USD", Side: common.SideBuy, Type: common.OrderTypeMarket, Quantity: 1, Price: fptr(35000)},
			wantErr: ErrMarketHasPrice,
		},
		{
			name:    "stop limit without stop price",
			order:   Order{Symbol: "BTC/USD", Side: common.SideSell, Type: common.OrderTypeStopLimit, Quantity: 1, Price: fptr(34000)},
			wantErr: ErrStopNeedsStop,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
			if tt.wantErr != nil && err != tt.wantErr {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRemainingQty(t *testing.T) {
	o := Order{Quantity: 2.0, FilledQty: 0.5}
	if got := o.RemainingQty(); got != 1.5 {
		t.Errorf("RemainingQty() = %v, want 1.5", got)
	}
	if o.IsFullyFilled() {
		t.Error("order with remaining quantity reported fully filled")
	}
	o.FilledQty = 2.0
	if !o.IsFullyFilled() {
		t.Error("fully filled order not reported as such")
	}
}
