package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	log     *slog.Logger

	// exitCode is what Execute hands back to main: 0 all passed,
	// 1 test failures, 2 parse or usage errors.
	exitCode int
)

// rootCmd is the base command for shellspec.
var rootCmd = &cobra.Command{
	Use:   "shellspec",
	Short: "Declarative test runner for shell commands and interactive CLIs",
	Long: `shellspec runs .spec files written in a line-oriented mini-language:
each test case executes shell commands in an isolated temporary
directory, drives interactive programs through a pseudo-terminal, and
checks assertions against their output and the filesystem.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "shellspec.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print the output of each command")

	// Initialize default logger (overridden in PersistentPreRun)
	log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if exitCode == 0 {
			exitCode = 2
		}
	}
	return exitCode
}
