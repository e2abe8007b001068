package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/server.hcl")
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", cfg.ListenAddress())
	assert.Equal(t, 5, cfg.Game.Ante)
	assert.Equal(t, 100, cfg.Game.StartingChips)
	assert.Equal(t, 10, cfg.Game.MaxHands)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
server {
  address = "0.0.0.0"
  port    = 9000
}

game {
  ante           = 10
  starting_chips = 200
}

rooms {
  auto_advance_seconds = 8
}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddress())
	assert.Equal(t, 10, cfg.Game.Ante)
	assert.Equal(t, 200, cfg.Game.StartingChips)
	assert.Equal(t, 10, cfg.Game.MaxHands, "unset values fall back to defaults")
	require.NoError(t, cfg.Validate())

	autoAdvance, idle := cfg.Timings()
	assert.Equal(t, 8*time.Second, autoAdvance)
	assert.Zero(t, idle, "unset timer keeps the built-in default")
}

func TestLoadConfigParseError(t *testing.T) {
	path := writeConfig(t, `server { port = `)
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Game.Ante = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Game.StartingChips = 3
	assert.Error(t, cfg.Validate(), "stack smaller than the ante cannot play")
}
