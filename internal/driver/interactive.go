package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"

	"github.com/frherrer/shellspec/internal/domain"
)

// transcript accumulates child output from the PTY. A background
// reader appends chunks; expect waits on the notify channel until the
// wanted substring shows up or the step deadline passes.
type transcript struct {
	mu     sync.Mutex
	buf    strings.Builder
	notify chan struct{}
	done   chan struct{}
}

func newTranscript() *transcript {
	return &transcript{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (t *transcript) append(p []byte) {
	t.mu.Lock()
	// PTYs emit CRLF line endings; normalize so spec text matches.
	t.buf.WriteString(strings.ReplaceAll(string(p), "\r", ""))
	t.mu.Unlock()

	select {
	case t.notify <- struct{}{}:
	default:
	}
}

func (t *transcript) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}

// read drains the PTY until the child exits. A PTY read fails with EIO
// on Linux once the child side is closed; that is the normal end.
func (t *transcript) read(f *os.File) {
	defer close(t.done)
	buf := make([]byte, 4096)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			t.append(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// expect blocks until the transcript contains text, or fails after the
// per-step timeout.
func (t *transcript) expect(text string, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if strings.Contains(t.String(), text) {
			return nil
		}
		select {
		case <-t.notify:
		case <-t.done:
			// Output is final; one last check before giving up.
			if strings.Contains(t.String(), text) {
				return nil
			}
			return fmt.Errorf("expect %q: child exited before producing it", text)
		case <-deadline.C:
			return fmt.Errorf("expect %q %w after %s", text, ErrTimeout, timeout)
		}
	}
}

// runInteractive spawns the child under a pseudo-terminal so it keeps
// line-buffered, interactive behavior, then walks the expect/send
// script in order.
func (d *Driver) runInteractive(ctx context.Context, stmt *domain.Statement, exe string, args []string, workdir string, env []string) (*domain.ProcessResult, error) {
	cmd := exec.Command(exe, args...)
	cmd.Dir = workdir
	cmd.Env = env

	f, err := pty.Start(cmd)
	if err != nil {
		return &domain.ProcessResult{Mode: domain.Interactive}, fmt.Errorf("failed to run %q: %w", exe, err)
	}
	defer f.Close()

	t := newTranscript()
	go t.read(f)

	result := func() *domain.ProcessResult {
		return &domain.ProcessResult{
			Stdout: t.String(),
			Mode:   domain.Interactive,
		}
	}

	for _, step := range stmt.Script {
		if err := ctx.Err(); err != nil {
			cmd.Process.Kill()
			return result(), err
		}
		switch step.Kind {
		case domain.Expect:
			if err := t.expect(step.Text, d.opts.ExpectTimeout); err != nil {
				cmd.Process.Kill()
				<-t.done
				return result(), err
			}
		case domain.Send:
			if _, err := f.WriteString(step.Text + "\n"); err != nil {
				cmd.Process.Kill()
				<-t.done
				return result(), fmt.Errorf("send %q: %w", step.Text, err)
			}
		}
	}

	// Script done; wait for the child to exit and output to drain.
	select {
	case <-t.done:
	case <-time.After(d.opts.ShellTimeout):
		cmd.Process.Kill()
		<-t.done
		res := result()
		return res, fmt.Errorf("command %q %w after %s", exe, ErrTimeout, d.opts.ShellTimeout)
	}

	err = cmd.Wait()
	res := result()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, fmt.Errorf("failed to wait for %q: %w", exe, err)
	}
	return res, nil
}
