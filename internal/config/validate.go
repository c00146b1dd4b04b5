package config

import (
	"fmt"
	"strings"

	"github.com/frherrer/shellspec/internal/domain"
)

// Validate checks the Config for required fields and valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Timeouts.Shell <= 0 {
		errs = append(errs, "timeouts.shell must be positive")
	}
	if cfg.Timeouts.Expect <= 0 {
		errs = append(errs, "timeouts.expect must be positive")
	}

	for name, path := range cfg.Aliases {
		if name == "" || path == "" {
			errs = append(errs, "aliases entries must have non-empty name and path")
			break
		}
	}

	if len(cfg.Docs.Tags) == 0 {
		errs = append(errs, "docs.tags must not be empty")
	}

	if cfg.Logging.Level != "" {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[cfg.Logging.Level] {
			errs = append(errs, fmt.Sprintf("logging.level must be one of: debug, info, warn, error (got %q)", cfg.Logging.Level))
		}
	}

	if len(errs) > 0 {
		return domain.NewError("config", "", 0, fmt.Sprintf("validation failed: %s", strings.Join(errs, "; ")), nil)
	}

	return nil
}
