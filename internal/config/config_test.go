package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsense/pkg/analysis"

	// Register the minic backend via init()
	_ "github.com/leapstack-labs/leapsense/pkg/minic"
)

func writeConfig(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestLoadFromDir(t *testing.T) {
	t.Run("no config file", func(t *testing.T) {
		cfg, err := LoadFromDir(t.TempDir())
		require.NoError(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("defaults applied", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, ConfigFileName, "include_paths: [include]\n")

		cfg, err := LoadFromDir(dir)
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, DefaultBackend, cfg.Backend)
		assert.Equal(t, []string{"-c"}, cfg.CompileFlags)
		assert.Equal(t, []string{filepath.Join(dir, "include")}, cfg.IncludePaths)
		assert.True(t, cfg.Parse.PrecompiledPreamble)
		assert.True(t, cfg.Completion.IncludeMacros)
		assert.True(t, cfg.Completion.Dedupe)
	})

	t.Run("alternate name and overrides", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, ConfigFileNameAlt, `backend: minic
compile_flags: ["-Wall", "-x", "c"]
include_paths: [/usr/local/include]
parse:
  precompiled_preamble: false
completion:
  rank_prefix: true
  limit: 20
`)

		cfg, err := LoadFromDir(dir)
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, []string{"-Wall", "-x", "c"}, cfg.CompileFlags)
		assert.Equal(t, []string{"/usr/local/include"}, cfg.IncludePaths)
		assert.False(t, cfg.Parse.PrecompiledPreamble)
		assert.True(t, cfg.Parse.CacheCompletionResults)
		assert.True(t, cfg.Completion.RankPrefix)
		assert.Equal(t, 20, cfg.Completion.Limit)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, ConfigFileName, "backend: [unclosed\n")
		_, err := LoadFromDir(dir)
		assert.Error(t, err)
	})
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "src", "lib")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	writeConfig(t, root, ConfigFileName, "backend: minic\n")

	assert.Equal(t, root, FindProjectRoot(nested))
	assert.Equal(t, root, FindProjectRoot(root))
	assert.Empty(t, FindProjectRoot(t.TempDir()))
}

func TestProjectConfig_Flags(t *testing.T) {
	cfg := &ProjectConfig{IncludePaths: []string{"/a", "/b"}, CompileFlags: []string{"-c"}}
	flags := cfg.Flags()
	assert.Equal(t, []string{"-I/a", "-I/b", "-c"}, flags.Args())

	// the returned flags do not alias the config
	flags.IncludePaths[0] = "/changed"
	assert.Equal(t, "/a", cfg.IncludePaths[0])
}

func TestValidateBackend(t *testing.T) {
	tests := []struct {
		name      string
		backend   string
		errSubstr string
	}{
		{name: "registered", backend: "minic"},
		{name: "case insensitive", backend: "MiniC"},
		{name: "empty", backend: "", errSubstr: "backend is required"},
		{name: "unknown", backend: "libclang", errSubstr: "unknown backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBackend(tt.backend)
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}

	var unknown *analysis.UnknownBackendError
	require.ErrorAs(t, ValidateBackend("nope"), &unknown)
	assert.Contains(t, unknown.Available, "minic")
}

func TestParseConfig_Options(t *testing.T) {
	assert.Equal(t, analysis.DefaultParseOptions, ParseConfig{PrecompiledPreamble: true, CacheCompletionResults: true}.Options())
	assert.Equal(t, analysis.ParseOption(0), ParseConfig{}.Options())
}

func TestCompletionConfig_Options(t *testing.T) {
	assert.Empty(t, CompletionConfig{IncludeMacros: true, Dedupe: true}.Options("x"))
	assert.Len(t, CompletionConfig{RankPrefix: true, Limit: 5}.Options("x"), 4)
}
