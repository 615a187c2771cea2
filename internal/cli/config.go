package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/roach88/exprgen/internal/ir"
)

// Config is the optional TOML configuration file:
//
//	log_level = "debug"
//
//	[lowering]
//	supported = ["Block", "Load", "IntegerLiteral"]
//	cache = true
//
//	[store]
//	path = "exprgen.db"
//
// Flags override config values.
type Config struct {
	LogLevel string         `toml:"log_level"`
	Lowering LoweringConfig `toml:"lowering"`
	Store    StoreConfig    `toml:"store"`
}

// LoweringConfig configures the closure compiler backend.
type LoweringConfig struct {
	// Supported restricts the backend to these node kinds. Empty means all.
	Supported []string `toml:"supported"`

	// Cache memoizes lowerings of structurally identical trees.
	Cache bool `toml:"cache"`
}

// StoreConfig configures the expression catalog.
type StoreConfig struct {
	Path string `toml:"path"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Lowering: LoweringConfig{Cache: true},
		Store:    StoreConfig{Path: "exprgen.db"},
	}
}

// LoadConfig reads path over the defaults. An empty path yields the
// defaults. Unknown keys are rejected to catch typos.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, ok := parseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level: unknown level %q", c.LogLevel)
	}
	if _, err := c.Kinds(); err != nil {
		return err
	}
	return nil
}

// Kinds parses lowering.supported.
func (c *Config) Kinds() ([]ir.Kind, error) {
	kinds := make([]ir.Kind, 0, len(c.Lowering.Supported))
	for _, name := range c.Lowering.Supported {
		k, ok := ir.ParseKind(name)
		if !ok {
			return nil, fmt.Errorf("lowering.supported: unknown node kind %q", name)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Level returns the configured log level, info when unset.
func (c *Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, true
	case "debug":
		return slog.LevelDebug, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
