package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/frherrer/shellspec/internal/config"
	"github.com/frherrer/shellspec/internal/driver"
	"github.com/frherrer/shellspec/internal/parser"
	"github.com/frherrer/shellspec/internal/report"
	"github.com/frherrer/shellspec/internal/runner"
	"github.com/frherrer/shellspec/internal/scanner"
)

var testFilter string

var runCmd = &cobra.Command{
	Use:   "run <spec-file|directory>",
	Short: "Run the test cases of a spec file",
	Long: `Parses the given spec file and runs its test cases in order. When
given a directory, all *.spec files beneath it run in sequence.`,
	Args: cobra.ExactArgs(1),
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

		files, err := specFiles(args[0])
		if err != nil {
			exitCode = 2
			return err
		}

		allPassed := true
		for _, file := range files {
			content, err := os.ReadFile(file)
			if err != nil {
				exitCode = 2
				return fmt.Errorf("failed to read spec file: %w", err)
			}
			passed, err := runSpec(file, content, cfg, testFilter)
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
	runCmd.Flags().StringVarP(&testFilter, "test", "t", "", "run only tests matching this number or substring of the test title")
	rootCmd.AddCommand(runCmd)
}

// specFiles resolves the positional argument to a list of spec files.
func specFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("spec file not found: %s", path)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	s := scanner.NewScanner(true)
	files, err := s.Scan(path, []string{"*.spec"}, nil)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no *.spec files under %s", path)
	}
	return files, nil
}

// runSpec parses and runs one spec document. The returned bool is
// whether every selected test passed.
func runSpec(path string, content []byte, cfg *config.Config, selector string) (bool, error) {
	doc, err := parser.Parse(path, content)
	if err != nil {
		return false, err
	}

	specDir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		specDir = filepath.Dir(path)
	}

	drv := driver.New(driver.Options{
		Aliases:       cfg.Aliases,
		AliasBaseDir:  cfg.AliasBaseDir,
		SpecDir:       specDir,
		ShellTimeout:  time.Duration(cfg.Timeouts.Shell) * time.Second,
		ExpectTimeout: time.Duration(cfg.Timeouts.Expect) * time.Second,
	})

	rep := report.NewTerminal(os.Stdout, report.WithVerbose(verbose))
	run := runner.New(doc, drv, rep, runnerLog(cfg))

	// A termination signal tears down the current child and the temp
	// directories before the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := run.Run(ctx, selector)
	if err != nil {
		return false, err
	}
	return summary.AllPassed(), nil
}

// runnerLog builds the logrus logger injected into the runner.
func runnerLog(cfg *config.Config) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if verbose {
		level = logrus.DebugLevel
	}
	l.SetLevel(level)
	return l
}
