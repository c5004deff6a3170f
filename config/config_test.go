package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "claude-cli", cfg.Provider)
	assert.Equal(t, []string{"eng"}, cfg.Languages)
	assert.Equal(t, 300, cfg.DPI)
	assert.Equal(t, "[REDACTED]", cfg.Placeholder)
	assert.Equal(t, "_redacted", cfg.OutputSuffix)
	assert.Equal(t, 1, cfg.Parallelism)
}

func TestLoadFromMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.toml"))

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromOverridesSubset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider = "anthropic"
languages = ["eng", "deu"]
dpi = 600
`), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, []string{"eng", "deu"}, cfg.Languages)
	assert.Equal(t, 600, cfg.DPI)
	// Untouched keys keep their defaults.
	assert.Equal(t, "[REDACTED]", cfg.Placeholder)
	assert.Equal(t, "_redacted", cfg.OutputSuffix)
}

func TestLoadFromRejectsBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`provider = [`), 0o644))

	_, err := LoadFrom(path)
	assert.ErrorContains(t, err, "parse")
}
