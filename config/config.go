// Package config holds the user-facing settings of the docsweep CLI:
// compiled-in defaults overlaid with an optional TOML file. Command-line
// flags override both.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full settings surface. Zero values are filled from Default.
type Config struct {
	// Provider selects the term identification backend: "claude-cli" or
	// "anthropic".
	Provider string `toml:"provider"`
	// Model overrides the provider's default model.
	Model string `toml:"model"`
	// Languages are tesseract trained-data hints for scanned pages.
	Languages []string `toml:"languages"`
	// DPI is the assumed resolution of scanned page images.
	DPI int `toml:"dpi"`
	// Placeholder replaces matched terms in flat-text documents.
	Placeholder string `toml:"placeholder"`
	// OutputSuffix is appended to the input base name for the default
	// output path.
	OutputSuffix string `toml:"output_suffix"`
	// Parallelism bounds concurrent page work; 1 means sequential.
	Parallelism int `toml:"parallelism"`
}

// Default returns the compiled-in settings.
func Default() Config {
	return Config{
		Provider:     "claude-cli",
		Languages:    []string{"eng"},
		DPI:          300,
		Placeholder:  "[REDACTED]",
		OutputSuffix: "_redacted",
		Parallelism:  1,
	}
}

// Path returns the per-user config file location.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "docsweep", "config.toml"), nil
}

// Load reads the per-user config file over the defaults. A missing file
// yields the defaults.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Default(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the TOML file at path over the defaults. Only keys present
// in the file are overridden.
func LoadFrom(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
