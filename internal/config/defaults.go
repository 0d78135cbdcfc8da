package config

// Default configuration values.
const (
	DefaultBackend     = "minic"
	DefaultVirtualName = "main.cpp"
	DefaultCompileFlag = "-c"
)

// DefaultCompileFlags returns the flags used when none are configured.
func DefaultCompileFlags() []string {
	return []string{DefaultCompileFlag}
}

// DefaultProjectConfig returns a ProjectConfig with every default applied.
func DefaultProjectConfig() *ProjectConfig {
	c := &ProjectConfig{
		Parse: ParseConfig{
			PrecompiledPreamble:    true,
			CacheCompletionResults: true,
		},
		Completion: CompletionConfig{
			IncludeMacros: true,
			Dedupe:        true,
		},
	}
	ApplyDefaults(c)
	return c
}

// ApplyDefaults applies default values to a ProjectConfig.
func ApplyDefaults(c *ProjectConfig) {
	if c == nil {
		return
	}
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.CompileFlags == nil {
		c.CompileFlags = DefaultCompileFlags()
	}
}
