package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"execution-core/internal/order"
	"execution-core/pkg/venues/common"
)

type placeOrderRequest struct {
	Symbol        string   `json:"symbol"`
	Direction     string   `json:"direction"`
	OrderType     string   `json:"order_type"`
	Quantity      float64  `json:"quantity"`
	Price         *float64 `json:"price"`
	StopPrice     *float64 `json:"stop_price"`
	TimeInForce   string   `json:"time_in_force"`
	Venue         string   `json:"venue"`
	StrategyID    string   `json:"strategy_id"`
	ClientOrderID string   `json:"client_order_id"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func parseSide(s string) (common.Side, error) {
	switch strings.ToLower(s) {
	case "buy":
		return common.SideBuy, nil
	case "sell":
		return common.SideSell, nil
	default:
		return "", fmt.Errorf("invalid direction %q: must be 'buy' or 'sell'", s)
	}
}

func parseOrderType(s string) (common.OrderType, error) {
	switch strings.ToLower(s) {
	case "market":
		return common.OrderTypeMarket, nil
	case "limit":
		return common.OrderTypeLimit, nil
	case "stop", "stoploss":
		return common.OrderTypeStopLoss, nil
	case "stoplimit":
		return common.OrderTypeStopLimit, nil
	case "trailingstop":
		return common.OrderTypeTrailingStop, nil
	default:
		return "", fmt.Errorf("invalid order type %q", s)
	}
}

func parseTimeInForce(s string) (common.TimeInForce, error) {
	switch strings.ToLower(s) {
	case "", "gtc":
		return common.TIFGTC, nil
	case "ioc":
		return common.TIFIOC, nil
	case "fok":
		return common.TIFFOK, nil
	case "day":
		return common.TIFDay, nil
	default:
		return "", fmt.Errorf("invalid time in force %q", s)
	}
}

// placeOrder accepts an order and returns its id immediately upon
// validated acceptance; submission is asynchronous and polled via
// getOrder.
func (s *Server) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PAYLOAD", "error": "invalid request payload"})
		return
	}

	side, err := parseSide(req.Direction)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_DIRECTION", "error": err.Error()})
		return
	}
	orderType, err := parseOrderType(req.OrderType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_ORDER_TYPE", "error": err.Error()})
		return
	}
	tif, err := parseTimeInForce(req.TimeInForce)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_TIME_IN_FORCE", "error": err.Error()})
		return
	}

	clientOrderID := req.ClientOrderID
	if clientOrderID == "" {
		clientOrderID = "API-" + uuid.NewString()
	}

	o := order.Order{
		ClientOrderID: clientOrderID,
		Symbol:        req.Symbol,
		Side:          side,
		Type:          orderType,
		Quantity:      req.Quantity,
		Price:         req.Price,
		StopPrice:     req.StopPrice,
		TimeInForce:   tif,
		Venue:         req.Venue,
		StrategyID:    req.StrategyID,
	}

	id, err := s.Manager.PlaceOrder(c.Request.Context(), o)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_FAILED", "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order_id": id.String(),
		"status":   "created",
	})
}

func (s *Server) getOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_ORDER_ID", "error": "invalid order ID format"})
		return
	}

	o, ok := s.Manager.GetOrder(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"code": "ORDER_NOT_FOUND", "error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) getActiveOrders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"orders": s.Manager.ActiveOrders()})
}

func (s *Server) cancelOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_ORDER_ID", "error": "invalid order ID format"})
		return
	}

	var req cancelOrderRequest
	_ = c.ShouldBindJSON(&req) // body is optional
	reason := req.Reason
	if reason == "" {
		reason = "User requested"
	}

	if err := s.Manager.CancelOrder(c.Request.Context(), id, reason); err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotActive):
			c.JSON(http.StatusNotFound, gin.H{"code": "ORDER_NOT_ACTIVE", "error": err.Error()})
		case errors.Is(err, order.ErrNotCancellable):
			c.JSON(http.StatusConflict, gin.H{"code": "NOT_CANCELLABLE", "error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR", "error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": id.String(),
		"status":   "cancelled",
		"reason":   reason,
	})
}

func (s *Server) listVenues(c *gin.Context) {
	names := s.Venues.VenueNames()
	out := make([]gin.H, 0, len(names))
	for _, name := range names {
		v, ok := s.Venues.Venue(name)
		if !ok {
			continue
		}
		out = append(out, gin.H{
			"name":      name,
			"type":      v.Type(),
			"connected": v.IsConnected(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"venues": out})
}

func (s *Server) getVenueBalance(c *gin.Context) {
	v, ok := s.Venues.Venue(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"code": "VENUE_NOT_FOUND", "error": "venue not registered"})
		return
	}
	bal, err := v.AccountBalance(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"code": "VENUE_ERROR", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, bal)
}

func (s *Server) getVenuePositions(c *gin.Context) {
	v, ok := s.Venues.Venue(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"code": "VENUE_NOT_FOUND", "error": "venue not registered"})
		return
	}
	positions, err := v.Positions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"code": "VENUE_ERROR", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

func (s *Server) getMarketData(c *gin.Context) {
	symbol := c.Param("symbol")
	name, ok := s.Venues.PrimaryFor(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"code": "NO_PRIMARY_VENUE", "error": "no primary venue defined for symbol"})
		return
	}
	v, ok := s.Venues.Venue(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"code": "VENUE_NOT_FOUND", "error": "venue not registered"})
		return
	}
	snap, err := v.MarketData(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"code": "VENUE_ERROR", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) getSupportedAssets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"assets": s.Venues.SupportedAssets(c.Request.Context())})
}
