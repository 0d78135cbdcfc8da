// Package config provides configuration management for the leapsense CLI.
//
// This package extends the shared project configuration from
// internal/config with CLI-specific fields (logging, output, watch). The
// shared types are re-exported here via type aliases for convenience.
package config

import (
	"time"

	sharedcfg "github.com/leapstack-labs/leapsense/internal/config"
	"github.com/leapstack-labs/leapsense/pkg/analysis"
)

// ParseConfig is an alias for the shared parse configuration.
type ParseConfig = sharedcfg.ParseConfig

// CompletionConfig is an alias for the shared completion configuration.
type CompletionConfig = sharedcfg.CompletionConfig

// WatchConfig holds configuration for the watch command.
type WatchConfig struct {
	Debounce time.Duration `koanf:"debounce"`
}

// Config holds all CLI configuration options.
type Config struct {
	ProjectRoot  string           `koanf:"-"`
	Backend      string           `koanf:"backend"`
	VirtualName  string           `koanf:"virtual_name"`
	IncludePaths []string         `koanf:"include_paths"`
	CompileFlags []string         `koanf:"compile_flags"`
	Parse        ParseConfig      `koanf:"parse"`
	Completion   CompletionConfig `koanf:"completion"`
	Watch        WatchConfig      `koanf:"watch"`
	LogLevel     string           `koanf:"log_level"`
	LogFormat    string           `koanf:"log_format"`
	Verbose      bool             `koanf:"verbose"`
	OutputFormat string           `koanf:"output"`
}

// Project returns the shared subset of the configuration.
func (c *Config) Project() *sharedcfg.ProjectConfig {
	return &sharedcfg.ProjectConfig{
		Backend:      c.Backend,
		IncludePaths: c.IncludePaths,
		CompileFlags: c.CompileFlags,
		Parse:        c.Parse,
		Completion:   c.Completion,
	}
}

// Flags returns the session compile configuration.
func (c *Config) Flags() analysis.Flags {
	return c.Project().Flags()
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultBackend     = sharedcfg.DefaultBackend
	DefaultVirtualName = sharedcfg.DefaultVirtualName
	DefaultLogLevel    = "warn"
	DefaultLogFormat   = "text"
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultDebounce    = 100 * time.Millisecond
)
