// Package config provides shared configuration types for leapsense.
// This package is decoupled from CLI concerns and can be used by the LSP
// and other tools that need to load project configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapsense/pkg/analysis"
)

// ParseConfig holds the parse flags handed to the backend on a full parse.
type ParseConfig struct {
	PrecompiledPreamble    bool `koanf:"precompiled_preamble"`
	CacheCompletionResults bool `koanf:"cache_completion_results"`
}

// Options converts the config to backend parse flags.
func (p ParseConfig) Options() analysis.ParseOption {
	var opts analysis.ParseOption
	if p.PrecompiledPreamble {
		opts |= analysis.ParsePrecompiledPreamble
	}
	if p.CacheCompletionResults {
		opts |= analysis.ParseCacheCompletionResults
	}
	return opts
}

// CompletionConfig holds completion query settings.
type CompletionConfig struct {
	IncludeMacros bool `koanf:"include_macros"`
	RankPrefix    bool `koanf:"rank_prefix"`
	Dedupe        bool `koanf:"dedupe"`
	Limit         int  `koanf:"limit"` // 0 means unlimited
}

// Options returns the completer options for a query whose cursor follows prefix.
func (c CompletionConfig) Options(prefix string) []analysis.CompleterOption {
	var opts []analysis.CompleterOption
	if !c.IncludeMacros {
		opts = append(opts, analysis.WithCompleteOptions(analysis.DefaultCompleteOptions&^analysis.CompleteIncludeMacros))
	}
	if c.RankPrefix {
		opts = append(opts, analysis.WithPrefixRanking(prefix))
	}
	if !c.Dedupe {
		opts = append(opts, analysis.WithoutDedupe())
	}
	if c.Limit > 0 {
		opts = append(opts, analysis.WithLimit(c.Limit))
	}
	return opts
}

// ProjectConfig holds the minimal project configuration needed by tools like the LSP.
// This is a subset of the full CLI Config.
type ProjectConfig struct {
	Backend      string           `koanf:"backend"`
	IncludePaths []string         `koanf:"include_paths"`
	CompileFlags []string         `koanf:"compile_flags"`
	Parse        ParseConfig      `koanf:"parse"`
	Completion   CompletionConfig `koanf:"completion"`
}

// Flags returns the session compile configuration.
func (c *ProjectConfig) Flags() analysis.Flags {
	return analysis.Flags{
		IncludePaths: append([]string(nil), c.IncludePaths...),
		CompileFlags: append([]string(nil), c.CompileFlags...),
	}
}

// Validate checks that the configured backend is available.
func (c *ProjectConfig) Validate() error {
	return ValidateBackend(c.Backend)
}

// ValidateBackend uses the backend registry to check a backend name.
func ValidateBackend(name string) error {
	if name == "" {
		return fmt.Errorf("backend is required")
	}
	if !analysis.IsRegistered(strings.ToLower(name)) {
		return &analysis.UnknownBackendError{
			Name:      name,
			Available: analysis.ListBackends(),
		}
	}
	return nil
}
