package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds all configuration for the application.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	StoreBackend string
	RedisURL     string

	// Auction
	AuctionDuration time.Duration

	// Presence leases on the redis backend
	PresenceLeaseTTL     time.Duration
	PresenceReapInterval time.Duration

	// Analytics
	InventoryPath string
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics when the redis backend has no URL.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		Env:                  getEnv("ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		StoreBackend:         getEnv("STORE_BACKEND", BackendMemory),
		RedisURL:             os.Getenv("REDIS_URL"),
		AuctionDuration:      time.Duration(getEnvInt("AUCTION_DURATION_SECONDS", 30)) * time.Second,
		PresenceLeaseTTL:     getEnvDuration("PRESENCE_LEASE_TTL", 15*time.Second),
		PresenceReapInterval: getEnvDuration("PRESENCE_REAP_INTERVAL", 5*time.Second),
		InventoryPath:        getEnv("INVENTORY_PATH", "inventory.csv"),
	}

	if cfg.Env == "production" && cfg.StoreBackend == BackendRedis && cfg.RedisURL == "" {
		panic("REDIS_URL is required in production")
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
