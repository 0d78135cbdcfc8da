package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsense/internal/cli/config"
	"github.com/leapstack-labs/leapsense/internal/cli/output"
	"github.com/leapstack-labs/leapsense/internal/cli/testutil"
	logtest "github.com/leapstack-labs/leapsense/internal/testutil"
	"github.com/leapstack-labs/leapsense/pkg/analysis"
	_ "github.com/leapstack-labs/leapsense/pkg/minic" // register the minic backend
)

// setupProject creates a test project, makes it the working directory and
// loads its configuration with the given output mode.
func setupProject(t *testing.T, mode string) (string, *config.Config) {
	t.Helper()
	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)
	cfg.OutputFormat = mode
	return dir, cfg
}

func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())
	cmd.SilenceUsage, cmd.SilenceErrors = true, true
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// ---------- Command Metadata Tests ----------

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewCheckCommand(), "check <file|->", []string{"fail-on"}},
		{NewCompleteCommand(), "complete <file|->", []string{"line", "column", "prefix-rank", "limit"}},
		{NewWatchCommand(), "watch <file>", []string{"debounce"}},
		{NewREPLCommand(), "repl", nil},
		{NewLSPCommand(), "lsp", nil},
		{NewBackendsCommand(), "backends", nil},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Long, "Long should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

// ---------- Check Tests ----------

func TestCheckCommand(t *testing.T) {
	t.Run("reports errors and fails", func(t *testing.T) {
		setupProject(t, "markdown")
		out, _, err := execute(t, NewCheckCommand(), "", "broken.cpp")
		require.ErrorIs(t, err, ErrDiagnosticsFound)
		assert.Contains(t, out, "## broken.cpp")
		assert.Contains(t, out, "use of undeclared identifier 'retrun'")
		assert.Contains(t, out, "| error |")
		testutil.AssertValidMarkdown(t, out)
	})

	t.Run("clean file with include path", func(t *testing.T) {
		setupProject(t, "text")
		out, errOut, err := execute(t, NewCheckCommand(), "", "clean.c")
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Contains(t, errOut, "clean.c: no diagnostics")
	})

	t.Run("fail-on fatal ignores errors", func(t *testing.T) {
		setupProject(t, "text")
		out, _, err := execute(t, NewCheckCommand(), "", "broken.cpp", "--fail-on", "fatal")
		require.NoError(t, err)
		assert.Contains(t, out, "expected ';' after expression")
		testutil.AssertNoANSI(t, out)
	})

	t.Run("stdin uses virtual name", func(t *testing.T) {
		setupProject(t, "json")
		out, _, err := execute(t, NewCheckCommand(), "int main() { retrun 0; }", "-")
		require.ErrorIs(t, err, ErrDiagnosticsFound)

		assert.NotContains(t, out, "Usage:")
		var res output.CheckOutput
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.Equal(t, "main.cpp", res.File)
		assert.Equal(t, "minic", res.Backend)
		assert.Equal(t, 2, res.Summary.Errors)
		require.NotNil(t, res.Diagnostics[0].Location)
		assert.Equal(t, 14, res.Diagnostics[0].Location.Column)
	})

	t.Run("invalid fail-on", func(t *testing.T) {
		setupProject(t, "text")
		_, _, err := execute(t, NewCheckCommand(), "", "broken.cpp", "--fail-on", "loud")
		assert.ErrorContains(t, err, "invalid --fail-on")
	})

	t.Run("missing file", func(t *testing.T) {
		setupProject(t, "text")
		_, _, err := execute(t, NewCheckCommand(), "", "nope.c")
		assert.ErrorContains(t, err, "failed to read nope.c")
	})
}

// ---------- Complete Tests ----------

func TestCompleteCommand(t *testing.T) {
	src := "#include <shapes.h>\nint main(void) { struct rect r; r."

	t.Run("members at end of buffer", func(t *testing.T) {
		setupProject(t, "json")
		out, _, err := execute(t, NewCompleteCommand(), src, "-")
		require.NoError(t, err)

		var res output.CompleteOutput
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.Equal(t, 2, res.Line)
		var texts []string
		for _, c := range res.Candidates {
			texts = append(texts, c.Text)
		}
		assert.ElementsMatch(t, []string{"w", "h"}, texts)
	})

	t.Run("explicit position with limit", func(t *testing.T) {
		setupProject(t, "markdown")
		out, _, err := execute(t, NewCompleteCommand(), "int area;\nint main(void) { return ar",
			"-", "--line", "2", "--column", "26", "--prefix-rank", "--limit", "1")
		require.NoError(t, err)
		assert.Contains(t, out, "## main.cpp:2:26")
		assert.Contains(t, out, "| variable | area |")
		assert.Equal(t, 1, strings.Count(out, "| variable |")+strings.Count(out, "| keyword |")+strings.Count(out, "| function |"))
	})

	t.Run("invalid position", func(t *testing.T) {
		setupProject(t, "text")
		_, _, err := execute(t, NewCompleteCommand(), "int x;", "-", "--line", "1", "--column=-3")
		require.ErrorIs(t, err, analysis.ErrInvalidPosition)
	})
}

// ---------- Backends Tests ----------

func TestBackendsCommand(t *testing.T) {
	setupProject(t, "json")
	out, _, err := execute(t, NewBackendsCommand(), "")
	require.NoError(t, err)

	var infos []output.BackendInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	assert.Contains(t, infos, output.BackendInfo{Name: "minic", Default: true, Active: true})
}

// ---------- Watch Tests ----------

func TestFileWatcher(t *testing.T) {
	dir, cfg := setupProject(t, "text")
	cmdCtx := &CommandContext{Cfg: cfg, Logger: logtest.NewTestLogger(t), Renderer: testutil.NewTestRendererText().Renderer}
	s, err := cmdCtx.NewSession()
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	path := filepath.Join(dir, "broken.cpp")
	w, err := newFileWatcher(path, 10*time.Millisecond, s, cmdCtx.Logger)
	require.NoError(t, err)

	reports := make(chan output.CheckOutput, 8)
	w.report = func(res output.CheckOutput, err error) {
		assert.NoError(t, err)
		reports <- res
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	first := receiveReport(t, reports)
	assert.Equal(t, 2, first.Summary.Errors)

	require.NoError(t, os.WriteFile(path, []byte("int main() { return 0; }"), 0o600))
	second := receiveReport(t, reports)
	assert.Zero(t, second.Summary.Total)

	cancel()
	require.NoError(t, <-done)

	stats := s.Stats()
	assert.Equal(t, 1, stats.FullParses)
	assert.GreaterOrEqual(t, stats.Reparses, 1)
}

func receiveReport(t *testing.T, reports <-chan output.CheckOutput) output.CheckOutput {
	t.Helper()
	select {
	case res := <-reports:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for analysis")
		return output.CheckOutput{}
	}
}

func TestNewFileWatcher_MissingFile(t *testing.T) {
	_, err := newFileWatcher(filepath.Join(t.TempDir(), "missing.c"), time.Millisecond, nil, nil)
	assert.ErrorContains(t, err, "cannot watch")
}

// ---------- REPL Tests ----------

func newTestREPL(t *testing.T) (*repl, *testutil.TestRenderer) {
	t.Helper()
	_, cfg := setupProject(t, "text")
	tr := testutil.NewTestRendererText()
	cmdCtx := &CommandContext{Cfg: cfg, Logger: logtest.NewTestLogger(t), Renderer: tr.Renderer}
	s, err := cmdCtx.NewSession()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return newREPL(cmdCtx, s), tr
}

func TestREPL_EditAndDiagnose(t *testing.T) {
	r, tr := newTestREPL(t)

	assert.False(t, r.HandleLine("int main() {"))
	assert.Contains(t, tr.ErrorOutput(), "diagnostics (.diag to show)")

	tr.Reset()
	assert.False(t, r.HandleLine("  return 0; }"))
	assert.Empty(t, tr.ErrorOutput())

	assert.False(t, r.HandleLine(".show"))
	assert.Contains(t, tr.Output(), " int main() {\n")
	assert.Contains(t, tr.Output(), "   return 0; }\n")

	tr.Reset()
	assert.False(t, r.HandleLine(".undo"))
	assert.Len(t, r.lines, 1)
	assert.False(t, r.HandleLine(".diag"))
	assert.Contains(t, tr.Output(), "expected '}'")

	tr.Reset()
	assert.False(t, r.HandleLine(".stats"))
	assert.Contains(t, tr.Output(), "parsed")

	assert.False(t, r.HandleLine(".reset"))
	assert.Empty(t, r.lines)
	assert.Equal(t, analysis.StateEmpty, r.session.State())

	assert.True(t, r.HandleLine(".quit"))
}

func TestREPL_Complete(t *testing.T) {
	r, tr := newTestREPL(t)
	r.HandleLine("struct point { int x; int y; };")
	r.HandleLine("int main(void) { struct point p; p.")

	tr.Reset()
	r.HandleLine(".complete")
	assert.Contains(t, tr.Output(), "│ x")
	assert.Contains(t, tr.Output(), "│ y")

	tr.Reset()
	r.HandleLine(".complete one two")
	assert.Contains(t, tr.ErrorOutput(), "Usage: .complete")
}

func TestREPL_TabCompletion(t *testing.T) {
	r, _ := newTestREPL(t)
	r.HandleLine("int counter; int count_all(void);")

	tests := []struct {
		name   string
		line   string
		want   []string
		length int
	}{
		{name: "identifier suffixes", line: "int main(void) { return cou", want: []string{"nter", "nt_all"}, length: 3},
		{name: "dot command", line: ".st", want: []string{"ats "}, length: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := []rune(tt.line)
			got, length := r.Do(line, len(line))
			var suffixes []string
			for _, g := range got {
				suffixes = append(suffixes, string(g))
			}
			for _, want := range tt.want {
				assert.Contains(t, suffixes, want)
			}
			assert.Equal(t, tt.length, length)
		})
	}
}
