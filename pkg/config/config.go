package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the execution core.
type Config struct {
	Port string

	// Transport auth
	JWTSecret string
	APIKey    string // key exchanged for a bearer token

	// Routing table (venues + primary map)
	RoutingConfigPath string

	// Crypto venue credentials
	CryptoAPIKey    string
	CryptoAPISecret string
	CryptoBaseURL   string
	CryptoLatency   time.Duration // simulated venue round-trip

	// Pipeline
	EventBufferSize   int
	ReconcileInterval time.Duration
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:              getEnv("PORT", "8080"),
		JWTSecret:         getEnv("JWT_SECRET", "dev-secret"),
		APIKey:            os.Getenv("API_KEY"),
		RoutingConfigPath: getEnv("ROUTING_CONFIG", "./routing.yaml"),
		CryptoAPIKey:      os.Getenv("CRYPTO_API_KEY"),
		CryptoAPISecret:   os.Getenv("CRYPTO_API_SECRET"),
		CryptoBaseURL:     getEnv("CRYPTO_BASE_URL", "https://api.sim-exchange.local"),
		CryptoLatency:     getEnvDuration("CRYPTO_LATENCY_MS", 50) * time.Millisecond,
		EventBufferSize:   getEnvInt("EVENT_BUFFER_SIZE", 100),
		ReconcileInterval: getEnvDuration("RECONCILE_INTERVAL_MS", 2000) * time.Millisecond,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def int) time.Duration {
	return time.Duration(getEnvInt(key, def))
}
