// Package config handles runtime configuration for the core.
//
// Everything here is operational policy — endpoints, poll cadences, the
// confirmation threshold — never protocol rules. Values come from defaults,
// then an optional `key = value` conf file.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config holds the core's runtime configuration.
type Config struct {
	// DataDir is the root for the durable secure store.
	DataDir string

	// ConfirmationThreshold is the confirmation count at which a pending
	// transaction becomes confirmed.
	ConfirmationThreshold int64

	// MonitorInterval is the network monitor poll cadence.
	MonitorInterval time.Duration

	// ScanInterval is the block scanner poll cadence.
	ScanInterval time.Duration

	// HTTPTimeout bounds each explorer request.
	HTTPTimeout time.Duration

	// RateLimit caps outbound explorer calls per coin.
	RateLimit RateLimitConfig

	// Coins holds per-coin settings, keyed by symbol.
	Coins map[string]CoinConfig

	// Log holds logging settings.
	Log LogConfig
}

// RateLimitConfig caps explorer request rates.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// CoinConfig holds per-coin operational settings.
type CoinConfig struct {
	// APIBaseURL is the explorer endpoint for this coin.
	APIBaseURL string

	// FeeFallback is the static fee table (base units per byte) used when
	// the explorer returns no estimates.
	FeeFallback FeeTable
}

// FeeTable holds fee rates by priority.
type FeeTable struct {
	Low    uint64
	Medium uint64
	High   uint64
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
	File  string
	JSON  bool
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.lasko
//	macOS:   ~/Library/Application Support/Lasko
//	Windows: %APPDATA%\Lasko
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lasko"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Lasko")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Lasko")
		}
		return filepath.Join(home, "AppData", "Roaming", "Lasko")
	default:
		return filepath.Join(home, ".lasko")
	}
}

// StoreDir returns the secure store directory.
func (c *Config) StoreDir() string {
	return filepath.Join(c.DataDir, "store")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the conf file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "lasko.conf")
}
