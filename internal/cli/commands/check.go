package commands

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapsense/internal/cli/output"
	"github.com/leapstack-labs/leapsense/pkg/analysis"
	"github.com/spf13/cobra"
)

// ErrDiagnosticsFound is returned when a check reports diagnostics at or
// above the failure threshold.
var ErrDiagnosticsFound = errors.New("diagnostics found")

// CheckOptions holds options for the check command.
type CheckOptions struct {
	FailOn string // Lowest severity that fails the command
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}
	cmd := &cobra.Command{
		Use:   "check <file|->",
		Short: "Parse a source buffer and report diagnostics",
		Long: `Parse a source buffer with the configured backend and report its diagnostics.

The buffer is read from the given file, or from stdin when the argument
is "-" (it is then analyzed under the configured virtual name).

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON/YAML: Machine-readable format`,
		Example: `  # Check a file
  leapsense check main.cpp

  # Check stdin with extra include paths
  cat main.cpp | leapsense check - -I include

  # Only fail on fatal diagnostics
  leapsense check main.cpp --fail-on fatal`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.FailOn, "fail-on", "error", "Lowest severity that fails the check: note, warning, error, fatal")
	_ = cmd.RegisterFlagCompletionFunc("fail-on", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"note", "warning", "error", "fatal"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runCheck(cmd *cobra.Command, arg string, opts *CheckOptions) error {
	threshold, ok := analysis.ParseSeverity(opts.FailOn)
	if !ok {
		return fmt.Errorf("invalid --fail-on value %q", opts.FailOn)
	}

	cmdCtx := NewCommandContext(cmd)
	snap, err := cmdCtx.ReadSnapshot(cmd, arg)
	if err != nil {
		return err
	}

	s, err := cmdCtx.NewSession()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	diags, err := s.EnsureParsed(snap)
	if err != nil {
		return err
	}

	res := output.CheckOutput{
		File:        snap.VirtualName(),
		Backend:     cmdCtx.Cfg.Backend,
		Diagnostics: diags,
		Summary:     output.Summarize(diags),
	}
	if err := renderDiagnostics(cmdCtx.Renderer, res); err != nil {
		return err
	}

	if len(analysis.FilterSeverity(diags, threshold)) > 0 {
		return ErrDiagnosticsFound
	}
	return nil
}
