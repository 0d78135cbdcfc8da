package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/leapstack-labs/leapsense/internal/cli/config"
	"github.com/leapstack-labs/leapsense/internal/cli/output"
	intconfig "github.com/leapstack-labs/leapsense/internal/config"
	"github.com/leapstack-labs/leapsense/pkg/analysis"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with config, logger and renderer.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// NewSession creates a session on the configured backend.
// The caller must Close it.
func (c *CommandContext) NewSession() (*analysis.Session, error) {
	backend, err := analysis.NewBackend(c.Cfg.Backend, c.Logger)
	if err != nil {
		return nil, err
	}
	s, err := analysis.NewSession(backend, c.Cfg.Flags(),
		analysis.WithLogger(c.Logger),
		analysis.WithParseOptions(c.Cfg.Parse.Options()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	c.Logger.Debug("session created", "session", s.ID(), "backend", c.Cfg.Backend)
	return s, nil
}

// Completer builds a completion engine from the completion config.
func (c *CommandContext) Completer(prefix string) *analysis.Completer {
	opts := c.Cfg.Completion.Options(prefix)
	opts = append(opts, analysis.WithCompleterLogger(c.Logger))
	return analysis.NewCompleter(opts...)
}

// ReadSnapshot reads a source buffer. "-" reads stdin under the configured
// virtual name; any other argument is read from disk and keeps its path as
// the virtual name.
func (c *CommandContext) ReadSnapshot(cmd *cobra.Command, arg string) (analysis.Snapshot, error) {
	if arg == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return analysis.Snapshot{}, fmt.Errorf("failed to read stdin: %w", err)
		}
		return analysis.NewSnapshot(c.Cfg.VirtualName, data), nil
	}
	data, err := os.ReadFile(arg) //nolint:gosec // path supplied by the user
	if err != nil {
		return analysis.Snapshot{}, fmt.Errorf("failed to read %s: %w", arg, err)
	}
	return analysis.NewSnapshot(arg, data), nil
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	// Fallback: read from environment with defaults
	cfg := &config.Config{
		Backend:      strings.ToLower(getEnvOrDefault("LEAPSENSE_BACKEND", config.DefaultBackend)),
		VirtualName:  getEnvOrDefault("LEAPSENSE_VIRTUAL_NAME", config.DefaultVirtualName),
		LogLevel:     getEnvOrDefault("LEAPSENSE_LOG_LEVEL", config.DefaultLogLevel),
		LogFormat:    getEnvOrDefault("LEAPSENSE_LOG_FORMAT", config.DefaultLogFormat),
		OutputFormat: getEnvOrDefault("LEAPSENSE_OUTPUT", config.DefaultOutput),
		Verbose:      os.Getenv("LEAPSENSE_VERBOSE") == "true",
		Parse:        config.ParseConfig{PrecompiledPreamble: true, CacheCompletionResults: true},
		Completion:   config.CompletionConfig{IncludeMacros: true, Dedupe: true},
		Watch:        config.WatchConfig{Debounce: config.DefaultDebounce},
	}
	if v := os.Getenv("LEAPSENSE_INCLUDE_PATHS"); v != "" {
		cfg.IncludePaths = strings.Split(v, ",")
	}
	cfg.CompileFlags = intconfig.DefaultCompileFlags()
	if v := os.Getenv("LEAPSENSE_COMPILE_FLAGS"); v != "" {
		cfg.CompileFlags = strings.Split(v, ",")
	}
	return cfg
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
