package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the server configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Search    SearchConfig    `toml:"search"`
	Snapshots SnapshotConfig  `toml:"snapshots"`
}

type ServerConfig struct {
	Port        string   `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	AdminKey    string   `toml:"admin_key"`
}

type DatabaseConfig struct {
	Path     string `toml:"path"`
	LogLevel string `toml:"log_level"` // silent, error, warn, info
}

// RateLimitConfig limits mutation requests per client IP. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `toml:"rps"`
	Burst int     `toml:"burst"`
}

type SearchConfig struct {
	CacheSize int `toml:"cache_size"` // Cached search result pages
}

type SnapshotConfig struct {
	Interval string `toml:"interval"` // e.g. "6h"
	Enabled  bool   `toml:"enabled"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			CORSOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Path:     "./data/sorcery.db",
			LogLevel: "warn",
		},
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 20,
		},
		Search: SearchConfig{
			CacheSize: 512,
		},
		Snapshots: SnapshotConfig{
			Interval: "6h",
			Enabled:  true,
		},
	}
}

// Load reads the TOML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Printf("Config: %s not found, using defaults", path)
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		c.Server.Port = v
	}
	if v, ok := lookup("DB_PATH"); ok && v != "" {
		c.Database.Path = v
	}
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.CORSOrigins = origins
	}
	if v, ok := lookup("ADMIN_KEY"); ok {
		c.Server.AdminKey = v
	}
	if v, ok := lookup("RATE_LIMIT_RPS"); ok && v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		c.RateLimit.RPS = rps
	}
	if v, ok := lookup("RATE_LIMIT_BURST"); ok && v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
		c.RateLimit.Burst = burst
	}
	if v, ok := lookup("SEARCH_CACHE_SIZE"); ok && v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SEARCH_CACHE_SIZE: %w", err)
		}
		c.Search.CacheSize = size
	}
	if v, ok := lookup("SNAPSHOT_INTERVAL"); ok && v != "" {
		c.Snapshots.Interval = v
	}
	return nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port must be set")
	}
	if c.Database.Path == "" {
		return errors.New("database.path must be set")
	}
	if c.Search.CacheSize <= 0 {
		return fmt.Errorf("search.cache_size must be positive, got %d", c.Search.CacheSize)
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit.burst must be positive when rps is set, got %d", c.RateLimit.Burst)
	}
	if _, err := c.SnapshotInterval(); err != nil {
		return err
	}
	return nil
}

// SnapshotInterval parses snapshots.interval.
func (c *Config) SnapshotInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Snapshots.Interval)
	if err != nil {
		return 0, fmt.Errorf("snapshots.interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("snapshots.interval must be positive, got %s", d)
	}
	return d, nil
}
