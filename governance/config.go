package governance

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 120 * time.Second
)

// Config holds the client settings. It is read from a JSON or TOML file and
// then overridden by the environment.
type Config struct {
	BaseURL           string  `json:"base_url" toml:"base_url"`
	TimeoutSeconds    int     `json:"timeout_seconds,omitempty" toml:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" toml:"requests_per_second"`
	OutputDir         string  `json:"output_dir,omitempty" toml:"output_dir"`
}

// Timeout is the per-request HTTP timeout.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoadConfig reads config from disk. A missing file is not an error: the
// environment and defaults are enough to reach a local service.
//
// Environment: GOVERNANCE_BASE_URL, GOVERNANCE_TIMEOUT (Go duration or
// seconds), GOVERNANCE_RPS, EXPORT_DIR. A .env file in the working
// directory is loaded first and never overrides variables already set.
func LoadConfig(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, err
		default:
			if err := decodeConfig(path, data, &cfg); err != nil {
				return Config{}, err
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the config can build a Client.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("config base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config base_url must be an absolute http(s) URL, got %q", c.BaseURL)
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("config requests_per_second must not be negative")
	}
	return nil
}

func decodeConfig(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("GOVERNANCE_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("GOVERNANCE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			secs, convErr := strconv.Atoi(v)
			if convErr != nil {
				return fmt.Errorf("GOVERNANCE_TIMEOUT: %w", err)
			}
			d = time.Duration(secs) * time.Second
		}
		cfg.TimeoutSeconds = int(d / time.Second)
	}
	if v := os.Getenv("GOVERNANCE_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("GOVERNANCE_RPS: %w", err)
		}
		cfg.RequestsPerSecond = rps
	}
	if v := os.Getenv("EXPORT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	return nil
}
