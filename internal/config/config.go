// Package config loads the sync server's TOML configuration. The file lives
// at ~/.config/habitsync/server.toml by default and can be overridden with
// the --config flag. CLI flags always take precedence over file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/julianstephens/habitsync/internal/constants"
)

// Config is the server configuration file structure. TOML keys are
// snake_case.
type Config struct {
	// Addr is the host:port the HTTP server listens on.
	// Default: 127.0.0.1:8080
	Addr string `toml:"addr"`

	// Driver selects the database backend: sqlite or postgres.
	// Default: sqlite
	Driver string `toml:"driver"`

	// DSN is the database location. For sqlite it is a file path, for
	// postgres a connection string.
	// Default: ~/.config/habitsync/server.db
	DSN string `toml:"dsn"`

	// LogDir is where the rotating server log is written.
	// Default: ~/.config/habitsync
	LogDir string `toml:"log_dir"`

	// Debug enables debug logging.
	Debug bool `toml:"debug"`

	// RateLimitPerSec and RateLimitBurst configure the per-user token bucket.
	// Default: 10 requests/sec with a burst of 20
	RateLimitPerSec float64 `toml:"rate_limit_per_sec"`
	RateLimitBurst  int     `toml:"rate_limit_burst"`

	// MaxBatchOps caps the number of operations in one sync request.
	// Default: 500
	MaxBatchOps int `toml:"max_batch_ops"`

	// Users lists the accounts allowed to sync. Each presents a bearer token
	// whose bcrypt hash is stored here (see 'habitsync hash-token').
	Users []User `toml:"users"`
}

// User is one account entry.
type User struct {
	ID        string `toml:"id"`
	TokenHash string `toml:"token_hash"`
}

// ConfigDir returns ~/.config/habitsync.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", constants.AppName), nil
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "server.toml"), nil
}

// Load reads the TOML file at path and fills in defaults.
//
// An empty path tries the default location and yields a default Config when
// that file does not exist. An explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err == nil {
			if _, statErr := os.Stat(defaultPath); statErr == nil {
				path = defaultPath
			}
		}
	} else if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() error {
	if c.Addr == "" {
		c.Addr = constants.DefaultServerAddr
	}
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	if c.DSN == "" || c.LogDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return err
		}
		if c.DSN == "" {
			c.DSN = filepath.Join(dir, "server.db")
		}
		if c.LogDir == "" {
			c.LogDir = dir
		}
	}
	if c.RateLimitPerSec <= 0 {
		c.RateLimitPerSec = constants.DefaultRateLimitPerSec
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = constants.DefaultRateLimitBurst
	}
	if c.MaxBatchOps <= 0 {
		c.MaxBatchOps = constants.MaxBatchOps
	}
	return nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Driver != "sqlite" && c.Driver != "postgres" {
		return fmt.Errorf("driver must be sqlite or postgres, got %q", c.Driver)
	}
	if len(c.Users) == 0 {
		return fmt.Errorf("no users configured: add a [[users]] entry with an id and token_hash")
	}
	seen := map[string]bool{}
	for i, u := range c.Users {
		if strings.TrimSpace(u.ID) == "" {
			return fmt.Errorf("users[%d]: id is required", i)
		}
		if !strings.HasPrefix(u.TokenHash, "$2") {
			return fmt.Errorf("users[%d] (%s): token_hash must be a bcrypt hash", i, u.ID)
		}
		if seen[u.ID] {
			return fmt.Errorf("users[%d]: duplicate id %s", i, u.ID)
		}
		seen[u.ID] = true
	}
	return nil
}
