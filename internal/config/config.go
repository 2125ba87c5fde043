package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration for skydrift.
type Config struct {
	// Server and account credentials. All three are required.
	ServerURL string `env:"SKYDRIFT_SERVER_URL"`
	Account   string `env:"SKYDRIFT_ACCOUNT"`
	Password  string `env:"SKYDRIFT_PASSWORD"`

	// SyncDir is where synchronized files are materialized. Defaults to
	// ~/.skydrift/files.
	SyncDir string `env:"SKYDRIFT_SYNC_DIR"`

	// DataDir holds the metadata database. Defaults to ~/.skydrift.
	DataDir string `env:"SKYDRIFT_DATA_DIR"`

	// FilterFile points at the optional selective-sync rules. Defaults
	// to <DataDir>/filter.yaml; a missing file means no filtering.
	FilterFile string `env:"SKYDRIFT_FILTER_FILE"`

	// SyncInterval is the period between full account passes.
	SyncInterval time.Duration `env:"SKYDRIFT_SYNC_INTERVAL" envDefault:"5m"`

	// EnableWatcher turns local filesystem watching on, so edits trigger
	// a push-only pass without waiting for the next interval.
	EnableWatcher bool `env:"SKYDRIFT_WATCH" envDefault:"true"`

	// EnableNotifications subscribes to the server's change feed, so
	// remote edits trigger a pass without waiting for the next interval.
	EnableNotifications bool `env:"SKYDRIFT_NOTIFICATIONS" envDefault:"true"`

	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	LogLevel string `env:"SKYDRIFT_LOG_LEVEL" envDefault:"info"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing credentials to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	// Resolve SyncDir to an absolute path at startup. The engine decides
	// whether a local copy lives inside the managed tree by string prefix
	// comparison, which only works reliably with absolute paths.
	absDir, err := filepath.Abs(cfg.SyncDir)
	if err != nil {
		return nil, fmt.Errorf("resolving sync dir to absolute path: %w", err)
	}

	cfg.SyncDir = absDir

	return cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("determining home directory: %w", err)
		}

		c.DataDir = filepath.Join(home, ".skydrift")
	}

	if c.SyncDir == "" {
		c.SyncDir = filepath.Join(c.DataDir, "files")
	}

	if c.FilterFile == "" {
		c.FilterFile = filepath.Join(c.DataDir, "filter.yaml")
	}

	return nil
}

func (c *Config) validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("SKYDRIFT_SERVER_URL is required")
	}

	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("SKYDRIFT_SERVER_URL must be an http(s) URL")
	}

	if c.Account == "" {
		return fmt.Errorf("SKYDRIFT_ACCOUNT is required")
	}

	if c.Password == "" {
		return fmt.Errorf("SKYDRIFT_PASSWORD is required")
	}

	if c.SyncInterval < time.Second {
		return fmt.Errorf("SKYDRIFT_SYNC_INTERVAL must be at least one second")
	}

	return nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// WebSocketURL derives the change-feed endpoint from the server URL.
func (c *Config) WebSocketURL() string {
	ws := c.ServerURL
	ws = strings.Replace(ws, "https://", "wss://", 1)
	ws = strings.Replace(ws, "http://", "ws://", 1)

	return strings.TrimSuffix(ws, "/") + "/api/v1/changes"
}
