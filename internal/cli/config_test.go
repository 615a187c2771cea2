package cli

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exprgen/internal/ir"
)

func TestDefaultConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.True(t, cfg.Lowering.Cache)
	assert.Equal(t, "exprgen.db", cfg.Store.Path)
	assert.Equal(t, slog.LevelInfo, cfg.Level())

	kinds, err := cfg.Kinds()
	require.NoError(t, err)
	assert.Empty(t, kinds)
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "exprgen.toml", `
log_level = "debug"

[lowering]
supported = ["Block", "Load"]
cache = false

[store]
path = "/tmp/catalog.db"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.False(t, cfg.Lowering.Cache)
	assert.Equal(t, "/tmp/catalog.db", cfg.Store.Path)

	kinds, err := cfg.Kinds()
	require.NoError(t, err)
	assert.Equal(t, []ir.Kind{ir.KindBlock, ir.KindLoad}, kinds)
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "exprgen.toml", "log_level = \"warn\"\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, cfg.Level())
	assert.True(t, cfg.Lowering.Cache)
	assert.Equal(t, "exprgen.db", cfg.Store.Path)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"syntax", "log_level = ", "parsing config"},
		{"unknown key", "[lowering]\nsuported = []\n", "unknown keys: lowering.suported"},
		{"bad level", "log_level = \"loud\"\n", `unknown level "loud"`},
		{"bad kind", "[lowering]\nsupported = [\"Loop\"]\n", `unknown node kind "Loop"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "exprgen.toml", tt.body)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
