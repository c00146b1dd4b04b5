package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/frherrer/shellspec/internal/config"
	"github.com/frherrer/shellspec/internal/docs"
)

var docsCmd = &cobra.Command{
	Use:   "docs <markdown-file>...",
	Short: "Run spec blocks embedded in markdown documentation",
	Long: `Extracts fenced code blocks tagged with one of the configured docs
tags (default "shellspec") from markdown files and runs them as a spec
document, so documentation stays executable.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOrDefault(cfgFile)
		if err != nil {
			exitCode = 2
			return err
		}
		if err := config.Validate(cfg); err != nil {
			exitCode = 2
			return err
		}

		allPassed := true
		for _, path := range args {
			content, err := os.ReadFile(path)
			if err != nil {
				exitCode = 2
				return fmt.Errorf("failed to read file: %w", err)
			}

			spec, err := docs.Extract(path, content, cfg.Docs.Tags)
			if err != nil {
				exitCode = 2
				return err
			}
			if len(spec) == 0 {
				log.Warn("no spec blocks found", "path", path)
				continue
			}

			passed, err := runSpec(path, spec, cfg, testFilter)
			if err != nil {
				exitCode = 2
				return err
			}
			allPassed = allPassed && passed
		}

		if !allPassed {
			exitCode = 1
		}
		return nil
	},
}

func init() {
	docsCmd.Flags().StringVar(&testFilter, "test", "", "run only tests matching this number or substring of the test title")
	rootCmd.AddCommand(docsCmd)
}
