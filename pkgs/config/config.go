// Package config loads the cmdtree TOML configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/aledsdavies/cmdtree/pkgs/builder"
	"github.com/aledsdavies/cmdtree/pkgs/catalogue"
	"github.com/aledsdavies/cmdtree/pkgs/errors"
	"github.com/aledsdavies/cmdtree/pkgs/normalizer"
)

// EnvPath names the config file when no path is given
const EnvPath = "CMDTREE_CONFIG"

// Output formats
const (
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

// Config holds the complete configuration
type Config struct {
	Normalize NormalizeConfig `toml:"normalize"`
	Catalogue CatalogueConfig `toml:"catalogue"`
	Output    OutputConfig    `toml:"output"`
	Log       LogConfig       `toml:"log"`
}

// NormalizeConfig holds tree-building settings
type NormalizeConfig struct {
	FoldDigits    bool `toml:"fold_digits"`
	RecoverQuotes bool `toml:"recover_quotes"`
	MaxDepth      int  `toml:"max_depth"`
}

// CatalogueConfig selects the command catalogue. An empty path uses the
// embedded one.
type CatalogueConfig struct {
	Path string `toml:"path"`
}

// OutputConfig holds dataset output settings
type OutputConfig struct {
	Format string `toml:"format"`
	PadTo  int    `toml:"pad_to"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used without a file
func Default() *Config {
	return &Config{
		Normalize: NormalizeConfig{
			FoldDigits:    true,
			RecoverQuotes: true,
			MaxDepth:      builder.DefaultMaxDepth,
		},
		Output: OutputConfig{Format: FormatJSON},
		Log:    LogConfig{Level: "warn"},
	}
}

// Load loads configuration from a TOML file. Keys missing from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.Newf(errors.ErrConfig, "config file not found: %s", path)
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrConfig, "failed to parse config", err)
	}

	cfg.applyDefaults()
	cfg.Catalogue.Path = os.ExpandEnv(cfg.Catalogue.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve loads path, or the file named by EnvPath when path is empty. With
// neither it returns Default.
func Resolve(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.Normalize.MaxDepth == 0 {
		c.Normalize.MaxDepth = builder.DefaultMaxDepth
	}
	if c.Output.Format == "" {
		c.Output.Format = FormatJSON
	}
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
}

// Validate checks value ranges and enumerations
func (c *Config) Validate() error {
	if c.Normalize.MaxDepth < 0 {
		return errors.Newf(errors.ErrConfig, "normalize.max_depth must not be negative, got %d", c.Normalize.MaxDepth)
	}
	if c.Output.PadTo < 0 {
		return errors.Newf(errors.ErrConfig, "output.pad_to must not be negative, got %d", c.Output.PadTo)
	}
	switch c.Output.Format {
	case FormatJSON, FormatCBOR:
	default:
		return errors.Newf(errors.ErrConfig, "output.format must be %q or %q, got %q", FormatJSON, FormatCBOR, c.Output.Format)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses log.level
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.Log.Level))); err != nil {
		return 0, errors.Wrap(errors.ErrConfig, fmt.Sprintf("invalid log.level %q", c.Log.Level), err)
	}
	return level, nil
}

// Catalog loads the configured catalogue
func (c *Config) Catalog() (*catalogue.Catalogue, error) {
	if c.Catalogue.Path == "" {
		return catalogue.Default(), nil
	}
	return catalogue.Load(c.Catalogue.Path)
}

// NormalizerOptions translates the configuration into normalizer options.
// The logger is left to the caller.
func (c *Config) NormalizerOptions() ([]normalizer.Option, error) {
	cat, err := c.Catalog()
	if err != nil {
		return nil, err
	}
	return []normalizer.Option{
		normalizer.WithCatalogue(cat),
		normalizer.WithFoldDigits(c.Normalize.FoldDigits),
		normalizer.WithRecoverQuotes(c.Normalize.RecoverQuotes),
		normalizer.WithMaxDepth(c.Normalize.MaxDepth),
	}, nil
}
