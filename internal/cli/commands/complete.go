package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapsense/internal/cli/output"
	"github.com/leapstack-labs/leapsense/pkg/analysis"
	"github.com/spf13/cobra"
)

// CompleteOptions holds options for the complete command.
type CompleteOptions struct {
	Line       int  // 1-based line
	Column     int  // 0-based byte column
	PrefixRank bool // Rank candidates matching the typed prefix first
	Limit      int  // Maximum candidates, 0 for all
}

// NewCompleteCommand creates the complete command.
func NewCompleteCommand() *cobra.Command {
	opts := &CompleteOptions{}
	cmd := &cobra.Command{
		Use:   "complete <file|->",
		Short: "List completion candidates at a position",
		Long: `Request code completion at a position in a source buffer.

Lines are 1-based and columns are 0-based byte offsets within the line.
Without --line the position defaults to the end of the buffer.`,
		Example: `  # Complete at the end of a file
  leapsense complete main.c

  # Complete after "r." on line 3
  leapsense complete main.c --line 3 --column 14

  # Rank by the identifier being typed, keep the top 10
  leapsense complete main.c --line 5 --column 9 --prefix-rank --limit 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComplete(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.Line, "line", 0, "1-based line (default: last line)")
	cmd.Flags().IntVar(&opts.Column, "column", 0, "0-based byte column")
	cmd.Flags().BoolVar(&opts.PrefixRank, "prefix-rank", false, "Rank candidates matching the typed prefix first")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum candidates (0 for all)")

	return cmd
}

func runComplete(cmd *cobra.Command, arg string, opts *CompleteOptions) error {
	cmdCtx := NewCommandContext(cmd)
	snap, err := cmdCtx.ReadSnapshot(cmd, arg)
	if err != nil {
		return err
	}

	pos := snap.End()
	if opts.Line > 0 {
		pos = analysis.Position{Line: opts.Line, Column: opts.Column}
	}

	cfg := *cmdCtx.Cfg
	if cmd.Flags().Changed("prefix-rank") {
		cfg.Completion.RankPrefix = opts.PrefixRank
	}
	if cmd.Flags().Changed("limit") {
		cfg.Completion.Limit = opts.Limit
	}
	cmdCtx.Cfg = &cfg

	s, err := cmdCtx.NewSession()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	completer := cmdCtx.Completer(snap.IdentPrefix(pos))
	res, err := completer.Complete(s, snap, pos)
	if err != nil {
		return fmt.Errorf("completion failed: %w", err)
	}

	out := output.CompleteOutput{
		File:             snap.VirtualName(),
		Line:             pos.Line,
		Column:           pos.Column,
		Candidates:       make([]output.CandidateInfo, 0, len(res.Candidates)),
		Diagnostics:      res.Diagnostics,
		ParseDiagnostics: res.ParseDiagnostics,
	}
	for _, c := range res.Candidates {
		out.Candidates = append(out.Candidates, output.NewCandidateInfo(c))
	}
	return renderCandidates(cmdCtx.Renderer, out)
}
