package normalizer

import (
	"log/slog"

	"github.com/aledsdavies/cmdtree/pkgs/builder"
	"github.com/aledsdavies/cmdtree/pkgs/rawtree"
)

// Option configures a Normalizer
type Option func(*Config)

// Config holds normalizer configuration
type Config struct {
	logger        *slog.Logger
	catalogue     builder.Catalogue
	parser        rawtree.Parser
	foldDigits    bool
	recoverQuotes bool
	maxDepth      int
}

func defaultConfig() Config {
	return Config{
		foldDigits:    true,
		recoverQuotes: true,
		maxDepth:      builder.DefaultMaxDepth,
	}
}

// WithLogger routes diagnostics to logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithCatalogue replaces the embedded command catalogue
func WithCatalogue(cat builder.Catalogue) Option {
	return func(c *Config) {
		c.catalogue = cat
	}
}

// WithParser replaces the bash parser
func WithParser(p rawtree.Parser) Option {
	return func(c *Config) {
		c.parser = p
	}
}

// WithFoldDigits toggles replacing digit runs in literals with _NUM
func WithFoldDigits(on bool) Option {
	return func(c *Config) {
		c.foldDigits = on
	}
}

// WithRecoverQuotes toggles restoring the quotes around quoted literals
func WithRecoverQuotes(on bool) Option {
	return func(c *Config) {
		c.recoverQuotes = on
	}
}

// WithMaxDepth bounds raw-tree recursion. Values below 1 keep the default.
func WithMaxDepth(depth int) Option {
	return func(c *Config) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}
