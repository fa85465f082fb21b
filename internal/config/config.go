// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// KeeperURI is the gocloud.dev secrets keeper URI used to wrap document
	// keys (e.g., "awskms://alias/my-key", "gcpkms://...", "base64key://").
	KeeperURI string

	// CryptoWorkers is the maximum number of concurrent cipher operations.
	// Zero selects the number of CPUs.
	CryptoWorkers int

	// KeyServiceWorkers is the maximum number of in-flight key service calls.
	KeyServiceWorkers int
	// KeyServiceTimeout bounds each key service call.
	KeyServiceTimeout time.Duration

	// RateLimitEnabled indicates whether key service rate limiting is enabled.
	RateLimitEnabled bool
	// RateLimitRequestsPerSec is the number of key service calls allowed per second.
	RateLimitRequestsPerSec float64

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Keeper configuration
		KeeperURI: env.GetString("KEEPER_URI", ""),

		// Worker pools
		CryptoWorkers:     env.GetInt("CRYPTO_WORKERS", 0),
		KeyServiceWorkers: env.GetInt("KEY_SERVICE_WORKERS", 25),
		KeyServiceTimeout: env.GetDuration("KEY_SERVICE_TIMEOUT_SECONDS", 20, time.Second),

		// Rate Limiting (key service calls)
		RateLimitEnabled:        env.GetBool("RATE_LIMIT_ENABLED", false),
		RateLimitRequestsPerSec: env.GetFloat64("RATE_LIMIT_REQUESTS_PER_SEC", 100.0),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "envcrypt"),
	}
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	// Get current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	// Search for .env file recursively up the directory tree
	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			// .env file found, load it
			_ = godotenv.Load(envPath)
			return
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}
}
