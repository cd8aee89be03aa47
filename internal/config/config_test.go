package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.Server.WebSocket.Address)
	assert.Equal(t, "/ws", cfg.Server.WebSocket.Path)
	assert.Equal(t, ":50051", cfg.Server.GRPC.Address)
	assert.Equal(t, 30*time.Second, cfg.Game.CounterTimeout)
	assert.Equal(t, 11, cfg.Game.MaxCounterDepth)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Database.Enabled())
	assert.Empty(t, cfg.Replay.Directory)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  websocket:
    address: ":9000"
game:
  counter_timeout: 0s
  max_counter_depth: 12
logging:
  level: debug
  format: json
database:
  url: postgres://duel@localhost/duel
  max_conns: 4
replay:
  directory: /var/lib/landsduel/replays
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.WebSocket.Address)
	assert.Equal(t, time.Duration(0), cfg.Game.CounterTimeout)
	assert.Equal(t, 12, cfg.Game.MaxCounterDepth)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, int32(4), cfg.Database.MaxConns)
	assert.Equal(t, "/var/lib/landsduel/replays", cfg.Replay.Directory)
	// untouched keys keep their defaults
	assert.Equal(t, ":50051", cfg.Server.GRPC.Address)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LANDSDUEL_GAME_COUNTER_TIMEOUT", "45s")
	t.Setenv("LANDSDUEL_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Game.CounterTimeout)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative timeout", "game:\n  counter_timeout: -1s\n"},
		{"zero depth", "game:\n  max_counter_depth: 0\n"},
		{"depth one", "game:\n  max_counter_depth: 1\n"},
		{"depth below a full island chain", "game:\n  max_counter_depth: 10\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"bad format", "logging:\n  format: xml\n"},
		{"relative ws path", "server:\n  websocket:\n    path: ws\n"},
		{"db without conns", "database:\n  url: postgres://x\n  max_conns: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}
