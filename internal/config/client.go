package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Client configures the walletsync CLI. Values come from an optional YAML file and
// are then overridden by WALLETSYNC_* environment variables.
type Client struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	Passphrase string `yaml:"-" envconfig:"PASSPHRASE"`
	APIURL     string `yaml:"api_url" envconfig:"API_URL"`
	LogLevel   string `yaml:"log_level" envconfig:"LOG_LEVEL"`

	RequestTimeout     time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	SyncInterval       time.Duration `yaml:"sync_interval" envconfig:"SYNC_INTERVAL"`
	SyncTimeout        time.Duration `yaml:"sync_timeout" envconfig:"SYNC_TIMEOUT"`
	TombstoneRetention time.Duration `yaml:"tombstone_retention" envconfig:"TOMBSTONE_RETENTION"`
}

const envPrefix = "WALLETSYNC"

func defaultClient() Client {
	dir := ".walletsync"
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".walletsync")
	}

	return Client{
		DataDir:            dir,
		APIURL:             "http://localhost:8080",
		LogLevel:           "info",
		RequestTimeout:     15 * time.Second,
		SyncInterval:       5 * time.Minute,
		SyncTimeout:        time.Minute,
		TombstoneRetention: 30 * 24 * time.Hour,
	}
}

// LoadClient reads path (skipped when empty or missing) and the environment.
func LoadClient(path string) (*Client, error) {
	cfg := defaultClient()

	if path != "" {
		data, err := os.ReadFile(path)

		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("config file not found, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Client) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}

	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api_url %q is not an absolute URL", c.APIURL)
	}

	if c.SyncInterval <= 0 || c.SyncTimeout <= 0 || c.RequestTimeout <= 0 {
		return errors.New("request_timeout, sync_interval and sync_timeout must be positive")
	}

	if c.TombstoneRetention < 0 {
		return errors.New("tombstone_retention must not be negative")
	}

	if _, err := c.Level(); err != nil {
		return err
	}

	return nil
}

func (c *Client) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}

	return l, nil
}

// DatabasePath is the SQLite file holding the local store.
func (c *Client) DatabasePath() string {
	return filepath.Join(c.DataDir, "walletsync.db")
}
