package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ClientID    string // Required: OAuth2 client ID issued by the aggregator
	RedirectURI string // Optional: loopback callback URL (default derived from ListenAddr)

	AuthBaseURL string // Optional: authorization server base URL (default: sandbox)
	APIBaseURL  string // Optional: data API base URL (default: sandbox)
	Environment string // Optional: aggregator environment (sandbox, live) (default: sandbox)

	SyncInterval   time.Duration // Optional: periodic sync interval (default: 1h)
	SyncMaxRetries int           // Optional: retry attempts after a failed sync (default: 3)
	SyncWindow     time.Duration // Optional: transaction lookback window (default: 30 days)

	RequestsPerSecond float64 // Optional: outbound data API rate cap (default: 5, 0 disables)

	DatabaseFile  string // Optional: path to SQLite database file (default: ./banklink.db)
	MasterKeyPath string // Optional: path to master encryption key file

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)

	ListenAddr          string        // Control API listen address (default: 127.0.0.1:4280)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	cfg := Config{
		ClientID:    os.Getenv("BANKLINK_CLIENT_ID"),
		RedirectURI: os.Getenv("BANKLINK_REDIRECT_URI"),

		AuthBaseURL: getEnvOrDefault("BANKLINK_AUTH_BASE_URL", "https://auth.truelayer-sandbox.com"),
		APIBaseURL:  getEnvOrDefault("BANKLINK_API_BASE_URL", "https://api.truelayer-sandbox.com"),
		Environment: getEnvOrDefault("BANKLINK_ENVIRONMENT", "sandbox"),

		SyncInterval:   getEnvDurationOrDefault("BANKLINK_SYNC_INTERVAL", 1*time.Hour),
		SyncMaxRetries: getEnvIntOrDefault("BANKLINK_SYNC_MAX_RETRIES", 3),
		SyncWindow:     getEnvDurationOrDefault("BANKLINK_SYNC_WINDOW", 30*24*time.Hour),

		RequestsPerSecond: getEnvFloatOrDefault("BANKLINK_REQUESTS_PER_SECOND", 5),

		DatabaseFile:  getEnvOrDefault("BANKLINK_DATABASE_FILE", "banklink.db"),
		MasterKeyPath: os.Getenv("BANKLINK_MASTER_KEY_PATH"),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),

		ListenAddr:          getEnvOrDefault("BANKLINK_LISTEN_ADDR", "127.0.0.1:4280"),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	if cfg.RedirectURI == "" {
		cfg.RedirectURI = "http://" + cfg.ListenAddr + "/v1/connect/callback"
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
		return floatValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
