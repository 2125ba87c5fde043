package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()

	t.Setenv("SKYDRIFT_SERVER_URL", "https://cloud.example.com")
	t.Setenv("SKYDRIFT_ACCOUNT", "alice")
	t.Setenv("SKYDRIFT_PASSWORD", "secret")
	t.Setenv("SKYDRIFT_DATA_DIR", t.TempDir())
}

func TestLoad(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "alice", cfg.Account)
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
	assert.True(t, cfg.EnableWatcher)
	assert.True(t, filepath.IsAbs(cfg.SyncDir))
	assert.Equal(t, filepath.Join(cfg.DataDir, "filter.yaml"), cfg.FilterFile)
	assert.False(t, cfg.IsProduction())
}

func TestLoadMissingServerURL(t *testing.T) {
	setRequired(t)
	t.Setenv("SKYDRIFT_SERVER_URL", "")

	_, err := Load()
	assert.ErrorContains(t, err, "SKYDRIFT_SERVER_URL")
}

func TestLoadRejectsNonHTTPURL(t *testing.T) {
	setRequired(t)
	t.Setenv("SKYDRIFT_SERVER_URL", "ftp://cloud.example.com")

	_, err := Load()
	assert.ErrorContains(t, err, "http(s)")
}

func TestLoadRejectsShortInterval(t *testing.T) {
	setRequired(t)
	t.Setenv("SKYDRIFT_SYNC_INTERVAL", "100ms")

	_, err := Load()
	assert.ErrorContains(t, err, "SKYDRIFT_SYNC_INTERVAL")
}

func TestWebSocketURL(t *testing.T) {
	cfg := &Config{ServerURL: "https://cloud.example.com/"}
	assert.Equal(t, "wss://cloud.example.com/api/v1/changes", cfg.WebSocketURL())

	cfg = &Config{ServerURL: "http://localhost:8080"}
	assert.Equal(t, "ws://localhost:8080/api/v1/changes", cfg.WebSocketURL())
}
