// Package router decides which venue handles a given order and
// forwards submit/cancel calls to the matching adapter.
package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"execution-core/internal/order"
	"execution-core/pkg/venues/common"
)

var (
	ErrAlreadyRegistered = errors.New("venue already registered")
	ErrNoVenues          = errors.New("no venues registered")
	ErrVenueNotFound     = errors.New("venue not registered")
	ErrNoPrimaryVenue    = errors.New("no primary venue defined for symbol")
)

// Router owns the venue registry and the symbol -> primary-venue map.
type Router struct {
	mu      sync.RWMutex
	venues  map[string]common.Venue
	names   []string // registration order, used by the cancel probe
	primary map[string]string
}

// New creates an empty router.
func New() *Router {
	return &Router{
		venues:  make(map[string]common.Venue),
		primary: make(map[string]string),
	}
}

// Register adds a venue adapter under its name. A name registers at
// most once.
func (r *Router) Register(v common.Venue) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := v.Name()
	if _, exists := r.venues[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	r.venues[name] = v
	r.names = append(r.names, name)
	log.Printf("router: registered venue %s (%s)", name, v.Type())
	return nil
}

// SetPrimary upserts the default venue for a symbol.
func (r *Router) SetPrimary(symbol, venue string) {
	r.mu.Lock()
	r.primary[symbol] = venue
	r.mu.Unlock()
	log.Printf("router: primary venue for %s is %s", symbol, venue)
}

// PrimaryFor returns the primary venue configured for a symbol.
func (r *Router) PrimaryFor(symbol string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.primary[symbol]
	return name, ok
}

// Venue returns a registered adapter by name.
func (r *Router) Venue(name string) (common.Venue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.venues[name]
	return v, ok
}

// VenueNames lists registered venues in registration order.
func (r *Router) VenueNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// SubmitOrder resolves the target venue — the order's pinned venue if
// set, else the primary venue for its symbol — and delegates the
// submission. The registry lock is released before the venue call.
func (r *Router) SubmitOrder(ctx context.Context, o order.Order) (string, error) {
	name := o.Venue
	if name == "" {
		var ok bool
		name, ok = r.PrimaryFor(o.Symbol)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrNoPrimaryVenue, o.Symbol)
		}
	}

	v, ok := r.Venue(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrVenueNotFound, name)
	}

	req := common.OrderRequest{
		OrderID:     o.ID,
		ClientID:    o.ClientOrderID,
		Symbol:      o.Symbol,
		Side:        o.Side,
		Type:        o.Type,
		Qty:         o.Quantity,
		TimeInForce: o.TimeInForce,
	}
	if o.Price != nil {
		req.Price = *o.Price
	}
	if o.StopPrice != nil {
		req.StopPrice = *o.StopPrice
	}

	if _, err := v.SubmitOrder(ctx, req); err != nil {
		return "", fmt.Errorf("submit to %s: %w", name, err)
	}
	return name, nil
}

// CancelOrder probes every registered venue in registration order,
// since the router does not track which venue holds which order, and
// succeeds on the first adapter that accepts the cancel.
func (r *Router) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	r.mu.RLock()
	names := make([]string, len(r.names))
	copy(names, r.names)
	venues := make([]common.Venue, 0, len(names))
	for _, n := range names {
		venues = append(venues, r.venues[n])
	}
	r.mu.RUnlock()

	if len(venues) == 0 {
		return ErrNoVenues
	}

	for i, v := range venues {
		if err := v.CancelOrder(ctx, orderID); err == nil {
			log.Printf("router: order %s cancelled on %s", orderID, names[i])
			return nil
		}
	}
	return fmt.Errorf("order %s not found on any venue", orderID)
}

// SupportedAssets returns the union of assets across all registered
// venues. Venues that fail the query are skipped.
func (r *Router) SupportedAssets(ctx context.Context) []string {
	r.mu.RLock()
	venues := make([]common.Venue, 0, len(r.names))
	for _, n := range r.names {
		venues = append(venues, r.venues[n])
	}
	r.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, v := range venues {
		assets, err := v.SupportedAssets(ctx)
		if err != nil {
			continue
		}
		for _, a := range assets {
			if _, dup := seen[a]; !dup {
				seen[a] = struct{}{}
				out = append(out, a)
			}
		}
	}
	return out
}
