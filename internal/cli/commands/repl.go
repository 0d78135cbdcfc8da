package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapsense/internal/cli/output"
	"github.com/leapstack-labs/leapsense/pkg/analysis"
	"github.com/spf13/cobra"
)

const (
	replPrompt      = "leapsense> "
	replHistoryFile = ".leapsense_history"
)

var replDotCommands = []string{".complete", ".show", ".undo", ".reset", ".diag", ".stats", ".help", ".quit", ".exit"}

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Edit a buffer interactively with live diagnostics and completion",
		Long: `Start an interactive session over an in-memory source buffer.

Every line typed is appended to the buffer and re-analyzed. Tab completes
identifiers at the end of the buffer using the configured backend.`,
		Example: `  # Start the REPL
  leapsense repl

  # Start with an include path
  leapsense repl -I ./include`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd)
		},
	}

	return cmd
}

func runREPL(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	s, err := cmdCtx.NewSession()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	repl := newREPL(cmdCtx, s)

	// Setup history file (project-local)
	var historyFile string
	if cmdCtx.Cfg.ProjectRoot != "" {
		historyFile = filepath.Join(cmdCtx.Cfg.ProjectRoot, replHistoryFile)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    repl,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "leapsense REPL (backend: %s, buffer: %s)\n", cmdCtx.Cfg.Backend, cmdCtx.Cfg.VirtualName)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if quit := repl.HandleLine(line); quit {
			break
		}
	}
	return nil
}

// repl holds the buffer being edited and the session analyzing it.
// Readline calls Do from its own goroutine, so session access is locked.
type repl struct {
	mu        sync.Mutex
	ctx       *CommandContext
	session   *analysis.Session
	lines     []string
	lastDiags []analysis.Diagnostic
}

func newREPL(ctx *CommandContext, s *analysis.Session) *repl {
	return &repl{ctx: ctx, session: s}
}

func (r *repl) snapshot() analysis.Snapshot {
	return analysis.SnapshotFromString(r.ctx.Cfg.VirtualName, strings.Join(r.lines, "\n"))
}

// HandleLine processes one input line and reports whether the REPL should exit.
func (r *repl) HandleLine(line string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, ".") {
		return r.handleDotCommand(trimmed)
	}

	r.lines = append(r.lines, line)
	r.analyze(true)
	return false
}

// analyze runs a text-change event over the current buffer.
func (r *repl) analyze(brief bool) {
	out := r.ctx.Renderer
	diags, err := r.session.EnsureParsed(r.snapshot())
	if err != nil {
		r.lastDiags = nil
		out.Error(err.Error())
		return
	}
	r.lastDiags = diags
	if brief && len(diags) > 0 {
		out.Warning(fmt.Sprintf("%d diagnostics (.diag to show)", len(diags)))
	}
}

func (r *repl) handleDotCommand(line string) bool {
	out := r.ctx.Renderer
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(out.Writer())

	case ".show":
		if len(r.lines) == 0 {
			out.Muted("(empty buffer)")
			return false
		}
		for i, l := range r.lines {
			out.Printf("%s %s\n", out.Styles().Muted.Render(fmt.Sprintf("%4d", i+1)), l)
		}

	case ".undo":
		if len(r.lines) == 0 {
			out.Warning("nothing to undo")
			return false
		}
		r.lines = r.lines[:len(r.lines)-1]
		r.analyze(true)

	case ".reset":
		r.lines = nil
		r.lastDiags = nil
		r.session.Invalidate()
		out.Success("buffer cleared")

	case ".diag":
		res := output.CheckOutput{
			File:        r.ctx.Cfg.VirtualName,
			Backend:     r.ctx.Cfg.Backend,
			Diagnostics: r.lastDiags,
			Summary:     output.Summarize(r.lastDiags),
		}
		if err := renderDiagnostics(out, res); err != nil {
			out.Error(err.Error())
		}

	case ".stats":
		stats := output.NewStatsOutput(r.session)
		if handled, err := out.Structured(stats); handled {
			if err != nil {
				out.Error(err.Error())
			}
			return false
		}
		out.Table([]string{"Session", "State", "Full parses", "Reparses", "Failures", "Completions"}, [][]string{{
			stats.Session, stats.State,
			strconv.Itoa(stats.FullParses), strconv.Itoa(stats.Reparses),
			strconv.Itoa(stats.Failures), strconv.Itoa(stats.Completions),
		}})

	case ".complete":
		r.complete(parts[1:])

	default:
		_, _ = fmt.Fprintf(out.ErrWriter(), "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func (r *repl) complete(args []string) {
	out := r.ctx.Renderer
	snap := r.snapshot()
	pos := snap.End()
	if len(args) == 2 {
		line, lerr := strconv.Atoi(args[0])
		col, cerr := strconv.Atoi(args[1])
		if lerr != nil || cerr != nil {
			_, _ = fmt.Fprintln(out.ErrWriter(), "Usage: .complete [line column]")
			return
		}
		pos = analysis.Position{Line: line, Column: col}
	} else if len(args) != 0 {
		_, _ = fmt.Fprintln(out.ErrWriter(), "Usage: .complete [line column]")
		return
	}

	res, err := r.ctx.Completer(snap.IdentPrefix(pos)).Complete(r.session, snap, pos)
	if err != nil {
		out.Error(err.Error())
		return
	}
	co := output.CompleteOutput{
		File:             snap.VirtualName(),
		Line:             pos.Line,
		Column:           pos.Column,
		Diagnostics:      res.Diagnostics,
		ParseDiagnostics: res.ParseDiagnostics,
	}
	for _, c := range res.Candidates {
		co.Candidates = append(co.Candidates, output.NewCandidateInfo(c))
	}
	if err := renderCandidates(out, co); err != nil {
		out.Error(err.Error())
	}
}

// Do implements readline.AutoCompleter. Dot commands complete by name; any
// other input completes the identifier under the cursor as if the typed
// text were appended to the buffer.
func (r *repl) Do(line []rune, pos int) ([][]rune, int) {
	typed := string(line[:pos])
	if strings.HasPrefix(strings.TrimSpace(typed), ".") && !strings.Contains(strings.TrimSpace(typed), " ") {
		word := strings.TrimSpace(typed)
		var out [][]rune
		for _, c := range replDotCommands {
			if strings.HasPrefix(c, word) {
				out = append(out, []rune(c[len(word):]+" "))
			}
		}
		return out, len([]rune(word))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	text := strings.Join(append(append([]string(nil), r.lines...), typed), "\n")
	snap := analysis.SnapshotFromString(r.ctx.Cfg.VirtualName, text)
	end := snap.End()
	prefix := snap.IdentPrefix(end)

	res, err := analysis.NewCompleter(analysis.WithPrefixRanking(prefix), analysis.WithCompleterLogger(r.ctx.Logger)).
		Complete(r.session, snap, end)
	if err != nil {
		r.ctx.Logger.Debug("tab completion failed", "error", err)
		return nil, 0
	}

	var out [][]rune
	for _, c := range res.Candidates {
		if len(c.DisplayText) > len(prefix) && strings.HasPrefix(c.DisplayText, prefix) {
			out = append(out, []rune(c.DisplayText[len(prefix):]))
		}
	}
	return out, len([]rune(prefix))
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .complete [line col]  Complete at a position (default: end of buffer)
  .show                 Print the buffer with line numbers
  .undo                 Remove the last line
  .reset                Clear the buffer and drop the parsed unit
  .diag                 Show diagnostics of the last analysis
  .stats                Show session counters
  .help                 Show this help message
  .quit / .exit         Exit the REPL

Tips:
  - Every other line is appended to the buffer and re-analyzed
  - Use arrow keys to navigate history
  - Tab completes identifiers and dot commands
`
	_, _ = fmt.Fprintln(w, help)
}
