package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsense/internal/cli/config"
	"github.com/leapstack-labs/leapsense/internal/cli/testutil"
)

func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	root := NewRootCmd()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"check", "complete", "watch", "repl", "lsp", "backends", "version", "completion"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	for _, flag := range []string{"config", "backend", "virtual-name", "include", "flag", "log-level", "log-format", "verbose", "output"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRoot_CheckWithFlags(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)

	t.Run("include flag replaces config paths", func(t *testing.T) {
		out, _, err := runRoot(t, "check", "clean.c", "-I", "missing", "-o", "json")
		require.Error(t, err)
		assert.Contains(t, out, "'shapes.h' file not found")
	})

	t.Run("config include paths", func(t *testing.T) {
		_, errOut, err := runRoot(t, "check", "clean.c", "-o", "text", "-v")
		require.NoError(t, err)
		assert.Contains(t, errOut, "Using config file:")
		assert.Contains(t, errOut, "no diagnostics")
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, _, err := runRoot(t, "check", "clean.c", "--backend", "clang")
		assert.ErrorContains(t, err, "invalid backend configuration")
	})

	t.Run("invalid output", func(t *testing.T) {
		_, _, err := runRoot(t, "backends", "-o", "html")
		assert.Error(t, err)
	})
}

func TestCompletionCommand(t *testing.T) {
	out, _, err := runRoot(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "leapsense")
}

func TestGetConfig_Default(t *testing.T) {
	cfg := GetConfig(t.Context())
	assert.Equal(t, config.DefaultBackend, cfg.Backend)
	assert.Equal(t, config.DefaultVirtualName, cfg.VirtualName)
}
