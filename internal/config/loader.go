package config

import (
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "leapsense.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "leapsense.yml"

// LoadFromDir loads a ProjectConfig from the given directory.
// It looks for leapsense.yaml or leapsense.yml in the directory.
// Returns nil, nil if no config file is found (not an error condition).
// Relative include paths are resolved against dir.
func LoadFromDir(dir string) (*ProjectConfig, error) {
	configPath := FindConfigFile(dir)
	if configPath == "" {
		return nil, nil
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(map[string]any{
		"parse.precompiled_preamble":     true,
		"parse.cache_completion_results": true,
		"completion.include_macros":      true,
		"completion.dedupe":              true,
	}, "."), nil); err != nil {
		return nil, err
	}
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, err
	}

	var cfg ProjectConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(&cfg)
	cfg.IncludePaths = ResolvePaths(cfg.IncludePaths, dir)

	return &cfg, nil
}

// FindConfigFile finds the config file in the given directory.
// Returns empty string if not found.
func FindConfigFile(dir string) string {
	yamlPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}

	ymlPath := filepath.Join(dir, ConfigFileNameAlt)
	if _, err := os.Stat(ymlPath); err == nil {
		return ymlPath
	}

	return ""
}

// FindProjectRoot walks up from the given directory to find a directory
// containing leapsense.yaml or leapsense.yml.
// Returns empty string if not found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for {
		if FindConfigFile(dir) != "" {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
}

// ResolvePaths resolves every relative path against baseDir.
func ResolvePaths(paths []string, baseDir string) []string {
	if len(paths) == 0 {
		return paths
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		if p == "" || filepath.IsAbs(p) || baseDir == "" {
			out[i] = p
			continue
		}
		out[i] = filepath.Join(baseDir, p)
	}
	return out
}
