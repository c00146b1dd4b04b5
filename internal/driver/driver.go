// Package driver executes a single shell statement, either as a plain
// subprocess with captured pipes or under a pseudo-terminal driven by
// an expect/send script.
package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/frherrer/shellspec/internal/domain"
)

// ErrTimeout marks both batch wall-clock and interactive per-step
// timeouts.
var ErrTimeout = errors.New("timed out")

// Options configures a Driver. Aliases and timeouts are injected by
// the host; SpecDir anchors relative command paths.
type Options struct {
	Aliases       map[string]string
	AliasBaseDir  string // base for relative alias replacement paths
	SpecDir       string // base for relative commands written in the spec
	ShellTimeout  time.Duration
	ExpectTimeout time.Duration
}

// Driver runs child processes for the test runner.
type Driver struct {
	opts Options
}

// New creates a Driver.
func New(opts Options) *Driver {
	if opts.ShellTimeout <= 0 {
		opts.ShellTimeout = 30 * time.Second
	}
	if opts.ExpectTimeout <= 0 {
		opts.ExpectTimeout = opts.ShellTimeout
	}
	return &Driver{opts: opts}
}

// Run executes one shell statement in workdir. The command name and
// arguments must already have variables expanded. The child inherits
// the parent environment plus extraEnv.
//
// On an expect timeout the returned ProcessResult still carries the
// transcript collected so far, for diagnostics.
func (d *Driver) Run(ctx context.Context, stmt *domain.Statement, name string, args []string, workdir string, extraEnv map[string]string) (*domain.ProcessResult, error) {
	exe := d.resolveExecutable(name)
	env := childEnv(extraEnv)

	if stmt.Interactive() {
		return d.runInteractive(ctx, stmt, exe, args, workdir, env)
	}
	return d.runBatch(ctx, exe, args, workdir, env)
}

// resolveExecutable applies the alias table and anchors relative
// paths. An alias replacement resolves against the alias base
// directory, a relative command written directly in the spec against
// the spec file's directory. Bare names are left to PATH lookup.
func (d *Driver) resolveExecutable(name string) string {
	if alias, ok := d.opts.Aliases[name]; ok {
		if filepath.IsAbs(alias) || !strings.Contains(alias, "/") {
			return alias
		}
		return filepath.Join(d.opts.AliasBaseDir, alias)
	}
	if filepath.IsAbs(name) || !strings.Contains(name, "/") {
		return name
	}
	return filepath.Join(d.opts.SpecDir, name)
}

func childEnv(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}

// runBatch spawns the child with stdout and stderr captured to
// separate buffers and stdin closed, then waits under the wall-clock
// timeout.
func (d *Driver) runBatch(ctx context.Context, exe string, args []string, workdir string, env []string) (*domain.ProcessResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.ShellTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Dir = workdir
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &domain.ProcessResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
		Mode:   domain.Batch,
	}

	if ctx.Err() == context.DeadlineExceeded {
		return result, fmt.Errorf("command %q %w after %s", exe, ErrTimeout, d.opts.ShellTimeout)
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return result, fmt.Errorf("failed to run %q: %w", exe, err)
	}
	return result, nil
}
