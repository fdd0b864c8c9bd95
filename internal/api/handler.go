package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"execution-core/internal/events"
	"execution-core/internal/monitor"
	"execution-core/internal/order"
	"execution-core/internal/router"
)

// Server wires HTTP endpoints around the order manager and router. It
// does thin request/response marshalling only; all order semantics
// live in the core.
type Server struct {
	Router    *gin.Engine
	Bus       *events.Bus
	Manager   *order.Manager
	Venues    *router.Router
	JWTSecret string
	APIKey    string
	Meta      SystemMeta
	Metrics   *monitor.SystemMetrics
}

// SystemMeta describes runtime status exposed to clients.
type SystemMeta struct {
	Version string
	Venues  []string
}

func NewServer(bus *events.Bus, manager *order.Manager, venues *router.Router, metrics *monitor.SystemMetrics, meta SystemMeta, jwtSecret, apiKey string) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(metrics))
	r.Use(RateLimitMiddleware())
	r.Use(CORSMiddleware())

	s := &Server{
		Router:    r,
		Bus:       bus,
		Manager:   manager,
		Venues:    venues,
		JWTSecret: jwtSecret,
		APIKey:    apiKey,
		Meta:      meta,
		Metrics:   metrics,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	// Scoped to the API group so the long-lived /ws stream is exempt.
	api := s.Router.Group("/api")
	api.Use(TimeoutMiddleware(30 * time.Second))
	{
		api.GET("/system/status", s.getSystemStatus)
		api.GET("/system/metrics", s.getSystemMetrics)
		api.POST("/auth/token", s.issueToken)

		protected := api.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			protected.POST("/orders", s.placeOrder)
			protected.GET("/orders", s.getActiveOrders)
			protected.GET("/orders/:id", s.getOrder)
			protected.POST("/orders/:id/cancel", s.cancelOrder)

			protected.GET("/venues", s.listVenues)
			protected.GET("/venues/:name/balance", s.getVenueBalance)
			protected.GET("/venues/:name/positions", s.getVenuePositions)
			protected.GET("/markets/:symbol", s.getMarketData)
			protected.GET("/assets", s.getSupportedAssets)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":       s.Meta.Version,
		"venues":        s.Meta.Venues,
		"active_orders": len(s.Manager.ActiveOrders()),
		"time":          time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) getSystemMetrics(c *gin.Context) {
	if s.Metrics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": "METRICS_DISABLED", "error": "metrics collection is not enabled"})
		return
	}
	c.JSON(http.StatusOK, s.Metrics.GetSnapshot())
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
