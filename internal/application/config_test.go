package application

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, validate.Struct(cfg))

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr)
	assert.Equal(t, 8, cfg.Engines.IRV.MaxTiebreakDepth)
	assert.Nil(t, cfg.Engines.IRV.Seed)
}

func TestParseConfig_OverlaysDefaults(t *testing.T) {
	data := []byte(`
server:
  addr: "127.0.0.1:9000"
engines:
  irv:
    max_tiebreak_depth: 4
    seed: 42
`)
	cfg, err := ParseConfig(data)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Engines.IRV.MaxTiebreakDepth)
	require.NotNil(t, cfg.Engines.IRV.Seed)
	assert.Equal(t, int64(42), *cfg.Engines.IRV.Seed)

	// Untouched sections keep their defaults.
	assert.Equal(t, int64(10<<20), cfg.Fetch.MaxBodyBytes)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "malformed yaml",
			yaml: "server: [addr",
		},
		{
			name: "bad listen address",
			yaml: "server:\n  addr: \"not an address\"",
		},
		{
			name: "tiebreak depth too deep",
			yaml: "engines:\n  irv:\n    max_tiebreak_depth: 64",
		},
		{
			name: "zero rate limit",
			yaml: "fetch:\n  requests_per_second: 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \"localhost:8081\"\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost:8081", cfg.Server.Addr)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
