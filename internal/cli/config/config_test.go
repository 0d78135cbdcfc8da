package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Register the minic backend via init()
	_ "github.com/leapstack-labs/leapsense/pkg/minic"
)

// newFlags mirrors the persistent flags of the root command.
func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("backend", "", "")
	fs.String("virtual-name", "", "")
	fs.StringSliceP("include", "I", nil, "")
	fs.StringSlice("flag", nil, "")
	fs.String("log-level", "", "")
	fs.String("log-format", "", "")
	fs.BoolP("verbose", "v", false, "")
	fs.StringP("output", "o", "", "")
	require.NoError(t, fs.Parse(args))
	return fs
}

// inEmptyDir runs the test from a directory without a config file.
func inEmptyDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	ResetConfig()
	return dir
}

// ---------- Loader Tests ----------

func TestLoadConfig_Defaults(t *testing.T) {
	dir := inEmptyDir(t)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "minic", cfg.Backend)
	assert.Equal(t, "main.cpp", cfg.VirtualName)
	assert.Equal(t, []string{"-c"}, cfg.CompileFlags)
	assert.Empty(t, cfg.IncludePaths)
	assert.True(t, cfg.Parse.PrecompiledPreamble)
	assert.True(t, cfg.Parse.CacheCompletionResults)
	assert.True(t, cfg.Completion.IncludeMacros)
	assert.True(t, cfg.Completion.Dedupe)
	assert.False(t, cfg.Completion.RankPrefix)
	assert.Equal(t, DefaultDebounce, cfg.Watch.Debounce)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	dir := inEmptyDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leapsense.yaml"), []byte(`virtual_name: scratch.c
include_paths: [include, /abs/include]
compile_flags: ["-Wall", "-x", "c"]
completion:
  rank_prefix: true
  limit: 25
watch:
  debounce: 250ms
`), 0o600))

	nested := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "scratch.c", cfg.VirtualName)
	assert.Equal(t, []string{filepath.Join(dir, "include"), "/abs/include"}, cfg.IncludePaths)
	assert.Equal(t, []string{"-Wall", "-x", "c"}, cfg.CompileFlags)
	assert.True(t, cfg.Completion.RankPrefix)
	assert.Equal(t, 25, cfg.Completion.Limit)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(dir, "leapsense.yaml"), GetConfigFileUsed())
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	inEmptyDir(t)
	other := t.TempDir()
	path := filepath.Join(other, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("virtual_name: custom.c\n"), 0o600))

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "custom.c", cfg.VirtualName)
	assert.Equal(t, other, cfg.ProjectRoot)

	_, err = LoadConfig(filepath.Join(other, "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := inEmptyDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leapsense.yaml"), []byte(`virtual_name: file.c
output: text
log_level: info
`), 0o600))

	t.Setenv("LEAPSENSE_OUTPUT", "json")
	t.Setenv("LEAPSENSE_LOG_LEVEL", "debug")
	t.Setenv("LEAPSENSE_COMPLETION__LIMIT", "7")
	t.Setenv("LEAPSENSE_PARSE__PRECOMPILED_PREAMBLE", "false")

	cfg, err := LoadConfig("", newFlags(t, "--output", "yaml", "--flag", "-Wall", "--flag", "-Werror", "-I", "vendor"))
	require.NoError(t, err)

	assert.Equal(t, "file.c", cfg.VirtualName, "file beats defaults")
	assert.Equal(t, "debug", cfg.LogLevel, "env beats file")
	assert.Equal(t, "yaml", cfg.OutputFormat, "flag beats env")
	assert.Equal(t, 7, cfg.Completion.Limit)
	assert.False(t, cfg.Parse.PrecompiledPreamble)
	assert.Equal(t, []string{"-Wall", "-Werror"}, cfg.CompileFlags)
	assert.Equal(t, []string{"vendor"}, cfg.IncludePaths)
}

func TestLoadConfig_EnvSlices(t *testing.T) {
	inEmptyDir(t)
	t.Setenv("LEAPSENSE_COMPILE_FLAGS", "-Wall,-DDEBUG")
	t.Setenv("LEAPSENSE_INCLUDE_PATHS", "/opt/a,/opt/b")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"-Wall", "-DDEBUG"}, cfg.CompileFlags)
	assert.Equal(t, []string{"/opt/a", "/opt/b"}, cfg.IncludePaths)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		errSubstr string
	}{
		{name: "unknown backend", args: []string{"--backend", "libclang"}, errSubstr: "unknown backend"},
		{name: "bad output", args: []string{"--output", "html"}, errSubstr: "invalid output format"},
		{name: "bad log level", args: []string{"--log-level", "loud"}, errSubstr: "invalid log_level"},
		{name: "bad log format", args: []string{"--log-format", "xml"}, errSubstr: "invalid log_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inEmptyDir(t)
			_, err := LoadConfig("", newFlags(t, tt.args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

// ---------- Config Tests ----------

func TestConfig_Flags(t *testing.T) {
	cfg := &Config{IncludePaths: []string{"/inc"}, CompileFlags: []string{"-c", "-Wall"}}
	assert.Equal(t, []string{"-I/inc", "-c", "-Wall"}, cfg.Flags().Args())
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Backend:      "minic",
		VirtualName:  "main.cpp",
		OutputFormat: "auto",
		LogLevel:     "warn",
		LogFormat:    "text",
	}
	require.NoError(t, valid.Validate())

	negative := valid
	negative.Completion.Limit = -1
	assert.ErrorContains(t, negative.Validate(), "completion.limit")

	debounce := valid
	debounce.Watch.Debounce = -time.Second
	assert.ErrorContains(t, debounce.Validate(), "watch.debounce")
}

// ---------- Logger Tests ----------

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "info", "json")
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = NewLogger(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = NewLogger(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "debug", "text")
	require.NoError(t, err)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
	assert.Equal(t, logger, ctx.Value(LoggerKey()))
}
