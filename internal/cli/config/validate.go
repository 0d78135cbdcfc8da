package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	intconfig "github.com/leapstack-labs/leapsense/internal/config"
)

// ValidOutputModes lists the accepted values of the output setting.
var ValidOutputModes = []string{"auto", "text", "markdown", "json", "yaml"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := intconfig.ValidateBackend(c.Backend); err != nil {
		return fmt.Errorf("invalid backend configuration: %w", err)
	}
	if c.VirtualName == "" {
		return fmt.Errorf("virtual_name is required")
	}
	if !slices.Contains(ValidOutputModes, strings.ToLower(c.OutputFormat)) {
		return fmt.Errorf("invalid output format %q (valid: %s)", c.OutputFormat, strings.Join(ValidOutputModes, ", "))
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level %q (valid: debug, info, warn, error)", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q (valid: text, json)", c.LogFormat)
	}
	if c.Completion.Limit < 0 {
		return fmt.Errorf("completion.limit must not be negative, got %d", c.Completion.Limit)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", c.Watch.Debounce)
	}
	return nil
}
