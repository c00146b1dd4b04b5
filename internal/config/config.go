package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/frherrer/shellspec/internal/domain"
)

// Config is the top-level runner configuration.
type Config struct {
	Aliases      map[string]string `yaml:"aliases"`
	AliasBaseDir string            `yaml:"alias_base_dir"`
	Timeouts     TimeoutConfig     `yaml:"timeouts"`
	Docs         DocsConfig        `yaml:"docs"`
	Logging      LoggingConfig     `yaml:"logging"`
	Verbose      bool              `yaml:"verbose"`
}

// TimeoutConfig holds the child-process timeouts in seconds.
type TimeoutConfig struct {
	Shell  int `yaml:"shell"`  // batch-mode wall clock
	Expect int `yaml:"expect"` // interactive per-step
}

// DocsConfig controls extraction of embedded spec blocks from
// documentation files.
type DocsConfig struct {
	Tags []string `yaml:"tags"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads a YAML configuration file and returns a Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewError("config", path, 0, "failed to read config file", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, domain.NewError("config", path, 0, "failed to parse config file", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path if it exists, otherwise returns defaults.
// A spec file does not need a sidecar config to run.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return Load(path)
}
