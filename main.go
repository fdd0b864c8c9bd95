package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"execution-core/internal/api"
	"execution-core/internal/events"
	"execution-core/internal/monitor"
	"execution-core/internal/order"
	"execution-core/internal/reconciliation"
	"execution-core/internal/router"
	"execution-core/pkg/config"
	venuecrypto "execution-core/pkg/venues/crypto"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	buildVersion := os.Getenv("APP_VERSION")
	if buildVersion == "" {
		buildVersion = "v1.0-dev"
	}
	log.Printf("starting execution core %s on port %s", buildVersion, cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Core services
	bus := events.NewBus()
	defer bus.Close()

	rt := router.New()
	registerVenues(ctx, rt, cfg)

	mgr := order.NewManager(rt, bus, cfg.EventBufferSize)
	mgr.Start(ctx)
	defer mgr.Close()

	recon := reconciliation.NewService(rt, mgr, cfg.ReconcileInterval)
	recon.Start(ctx)

	metrics := monitor.NewSystemMetrics()
	watcher := &monitor.Watcher{Bus: bus, Metrics: metrics, AlertFn: func(msg string) {
		_ = monitor.LogSink{}.Send(msg)
	}}
	watcher.Start(ctx)

	// API
	server := api.NewServer(
		bus,
		mgr,
		rt,
		metrics,
		api.SystemMeta{
			Version: buildVersion,
			Venues:  rt.VenueNames(),
		},
		cfg.JWTSecret,
		cfg.APIKey,
	)
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("api server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")
}

// registerVenues brings up the venues named in the routing table and
// installs the symbol -> primary-venue map. A venue that fails to
// connect is still registered; orders routed to it resolve to Failed
// until it comes up.
func registerVenues(ctx context.Context, rt *router.Router, cfg *config.Config) {
	rc, err := router.LoadConfig(cfg.RoutingConfigPath)
	if err != nil {
		log.Printf("⚠️ routing config %s not loaded (%v), starting with empty venue registry", cfg.RoutingConfigPath, err)
		return
	}

	for _, def := range rc.Venues {
		if def.Type != "crypto" {
			log.Printf("⚠️ skipping venue %s: unsupported type %q", def.Name, def.Type)
			continue
		}

		baseURL := def.BaseURL
		if baseURL == "" {
			baseURL = cfg.CryptoBaseURL
		}
		venue := venuecrypto.New(venuecrypto.Config{
			Name:      def.Name,
			BaseURL:   baseURL,
			APIKey:    cfg.CryptoAPIKey,
			APISecret: cfg.CryptoAPISecret,
			Latency:   cfg.CryptoLatency,
		})

		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := venue.Connect(connectCtx); err != nil {
			log.Printf("❌ venue %s connect failed: %v", def.Name, err)
		} else {
			log.Printf("✅ venue %s connected", def.Name)
		}
		cancel()

		if err := rt.Register(venue); err != nil {
			log.Printf("❌ venue %s not registered: %v", def.Name, err)
		}
	}

	for symbol, venue := range rc.Primary {
		rt.SetPrimary(symbol, venue)
	}
}
