package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Addr     string
	MockMode bool
	Debug    bool

	DBPath    string // match/inventory store (GORM)
	CachePath string // vulnerability feed cache (raw SQLite)

	NVDBaseURL string
	NVDAPIKey  string

	KEVURL         string
	KEVFallbackURL string

	BreachBaseURL string
	BreachAPIKey  string

	AlertWebhookURL string
	AlertThreshold  float64

	KEVSyncInterval       time.Duration
	InventoryScanInterval time.Duration
	LookupDelay           time.Duration
	CacheTTL              time.Duration
}

// Load parses command line flags and environment variables to populate Config.
// Flags take precedence over environment variables.
func Load() *Config {
	cfg := &Config{}

	// Defaults and Environment Variables
	cfg.Addr = getEnv("TW_ADDR", ":8080")
	cfg.MockMode = getEnvBool("TW_MOCK", false)
	cfg.DBPath = getEnv("TW_DB", getDefaultPath("threatwatch.db"))
	cfg.CachePath = getEnv("TW_CACHE_DB", getDefaultPath("feedcache.db"))
	cfg.NVDBaseURL = getEnv("TW_NVD_URL", "")
	cfg.NVDAPIKey = getEnv("TW_NVD_API_KEY", "")
	cfg.KEVURL = getEnv("TW_KEV_URL", "")
	cfg.KEVFallbackURL = getEnv("TW_KEV_FALLBACK_URL", "")
	cfg.BreachBaseURL = getEnv("TW_BREACH_URL", "")
	cfg.BreachAPIKey = getEnv("TW_BREACH_API_KEY", "")
	cfg.AlertWebhookURL = getEnv("TW_ALERT_WEBHOOK", "")
	cfg.AlertThreshold = getEnvFloat("TW_ALERT_THRESHOLD", 7.0)
	cfg.KEVSyncInterval = getEnvDuration("TW_KEV_INTERVAL", 12*time.Hour)
	cfg.InventoryScanInterval = getEnvDuration("TW_SCAN_INTERVAL", 24*time.Hour)
	cfg.LookupDelay = getEnvDuration("TW_LOOKUP_DELAY", 2*time.Second)
	cfg.CacheTTL = getEnvDuration("TW_CACHE_TTL", 24*time.Hour)

	// Command Line Flags (Override Env)
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP server address")
	flag.BoolVar(&cfg.MockMode, "mock", cfg.MockMode, "Run with fixture feed and breach clients (no network)")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to match store SQLite database")
	flag.StringVar(&cfg.CachePath, "cache-db", cfg.CachePath, "Path to feed cache SQLite database")
	flag.StringVar(&cfg.NVDAPIKey, "nvd-key", cfg.NVDAPIKey, "NVD API key (raises rate limits)")
	flag.StringVar(&cfg.AlertWebhookURL, "alert-webhook", cfg.AlertWebhookURL, "Webhook URL for high-severity alerts (empty to log only)")
	flag.Float64Var(&cfg.AlertThreshold, "alert-threshold", cfg.AlertThreshold, "Minimum CVSS score for alerting")
	flag.DurationVar(&cfg.KEVSyncInterval, "kev-interval", cfg.KEVSyncInterval, "KEV catalog sync interval")
	flag.DurationVar(&cfg.InventoryScanInterval, "scan-interval", cfg.InventoryScanInterval, "Inventory scan interval")
	flag.DurationVar(&cfg.LookupDelay, "lookup-delay", cfg.LookupDelay, "Pause between per-asset feed lookups")
	flag.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "Feed cache freshness window")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable verbose debug logging")

	flag.Parse()

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getDefaultPath returns the default location for a data file in the user's
// home directory. Creates the directory if it doesn't exist.
func getDefaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: Could not get user home directory, using current dir: %v", err)
		return name
	}

	dir := filepath.Join(home, ".threatwatch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("Warning: Could not create .threatwatch directory, using current dir: %v", err)
		return name
	}

	return filepath.Join(dir, name)
}
