package config

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Aliases:      map[string]string{},
		AliasBaseDir: ".",
		Timeouts: TimeoutConfig{
			Shell:  30,
			Expect: 30,
		},
		Docs: DocsConfig{
			Tags: []string{"shellspec"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
