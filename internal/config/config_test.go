package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/walletsync/internal/config"
)

func TestLoad(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("DB_NAME", "sync_test")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, 720*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "postgres://postgres:@localhost:5432/sync_test?sslmode=disable", cfg.ConnectionString())
}

func TestLoad_RejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoadClient(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/walletsync
api_url: https://sync.example.com
sync_interval: 10m
log_level: debug
`), 0o600))

	t.Setenv("WALLETSYNC_SYNC_TIMEOUT", "45s")
	t.Setenv("WALLETSYNC_PASSPHRASE", "correct horse")

	cfg, err := config.LoadClient(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/walletsync", cfg.DataDir)
	assert.Equal(t, "https://sync.example.com", cfg.APIURL)
	assert.Equal(t, 10*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 45*time.Second, cfg.SyncTimeout)
	assert.Equal(t, "correct horse", cfg.Passphrase)
	assert.Equal(t, 30*24*time.Hour, cfg.TombstoneRetention)
	assert.Equal(t, filepath.Join("/var/lib/walletsync", "walletsync.db"), cfg.DatabasePath())
}

func TestLoadClient_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.LoadClient(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.APIURL)
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
}

func TestClient_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Client)
	}{
		{name: "RelativeURL", mutate: func(c *config.Client) { c.APIURL = "sync.example.com" }},
		{name: "NoDataDir", mutate: func(c *config.Client) { c.DataDir = "" }},
		{name: "ZeroInterval", mutate: func(c *config.Client) { c.SyncInterval = 0 }},
		{name: "NegativeRetention", mutate: func(c *config.Client) { c.TombstoneRetention = -time.Hour }},
		{name: "UnknownLevel", mutate: func(c *config.Client) { c.LogLevel = "chatty" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.LoadClient("")
			require.NoError(t, err)

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
