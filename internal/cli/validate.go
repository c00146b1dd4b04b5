package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/frherrer/shellspec/internal/parser"
)

var validateCmd = &cobra.Command{
	Use:   "validate <spec-file>...",
	Short: "Parse spec files and report errors without running anything",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			content, err := os.ReadFile(path)
			if err != nil {
				exitCode = 2
				return fmt.Errorf("failed to read spec file: %w", err)
			}
			doc, err := parser.Parse(path, content)
			if err != nil {
				exitCode = 2
				return err
			}
			fmt.Printf("%s: %d test cases, %d snippets\n", path, len(doc.Tests), len(doc.Snippets))
			log.Debug("parsed spec file", "path", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
