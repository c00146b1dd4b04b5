package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/frherrer/shellspec/internal/domain"
)

// runAction dispatches a ":."  statement on its verb.
func (r *Runner) runAction(ctx context.Context, tctx *testContext, stmt *domain.Statement) *Failure {
	switch stmt.Target {
	case "file":
		return r.actionFile(tctx, stmt)
	case "stdout":
		return r.actionCapture(tctx, stmt, func(last *domain.ProcessResult) string { return last.Stdout })
	case "stderr":
		return r.actionCapture(tctx, stmt, func(last *domain.ProcessResult) string { return last.Stderr })
	case "env":
		return r.actionEnv(tctx, stmt)
	case "@":
		return r.actionSnippet(ctx, tctx, stmt)
	default:
		return r.fail(stmt, fmt.Sprintf("unknown action %q", stmt.Target), "")
	}
}

// actionFile writes the statement's content block to a file under the
// working directory. An optional second argument is an octal
// permission mode.
func (r *Runner) actionFile(tctx *testContext, stmt *domain.Statement) *Failure {
	if len(stmt.Args) == 0 {
		return r.fail(stmt, "file action requires a path", "")
	}

	path, err := tctx.store.Expand(stmt.Args[0])
	if err != nil {
		return r.fail(stmt, err.Error(), "")
	}
	full := tctx.resolve(path)

	var content string
	if len(stmt.Content) > 0 {
		content = strings.Join(stmt.Content, "\n") + "\n"
	}

	if dir := filepath.Dir(full); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return r.fail(stmt, fmt.Sprintf("failed to create directory for %q: %v", path, err), "")
		}
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return r.fail(stmt, fmt.Sprintf("failed to create file %q: %v", path, err), "")
	}

	if len(stmt.Args) > 1 {
		modeStr, err := tctx.store.Expand(stmt.Args[1])
		if err != nil {
			return r.fail(stmt, err.Error(), "")
		}
		mode, err := strconv.ParseUint(modeStr, 8, 32)
		if err != nil {
			return r.fail(stmt, fmt.Sprintf("invalid file mode %q", modeStr), "")
		}
		if err := os.Chmod(full, os.FileMode(mode)); err != nil {
			return r.fail(stmt, fmt.Sprintf("failed to chmod %q: %v", path, err), "")
		}
	}

	r.reporter.Check(fmt.Sprintf("created file %q", path), true)
	return nil
}

// actionCapture stores a stream of the last process result in a
// variable. The captured value is whitespace-trimmed.
func (r *Runner) actionCapture(tctx *testContext, stmt *domain.Statement, pick func(*domain.ProcessResult) string) *Failure {
	if len(stmt.Args) == 0 {
		return r.fail(stmt, fmt.Sprintf("%s action requires a variable name", stmt.Target), "")
	}
	if !stmt.Args[0].IsVar {
		return r.fail(stmt, fmt.Sprintf("variable name must start with '@': %s", stmt.Args[0].Value), "")
	}
	if tctx.last == nil {
		return r.fail(stmt, "no command has run yet", "")
	}

	name := stmt.Args[0].Value
	tctx.store.Set(name, strings.TrimSpace(pick(tctx.last)))
	return nil
}

// actionEnv sets an environment variable for every subsequent child
// process of the current test case.
func (r *Runner) actionEnv(tctx *testContext, stmt *domain.Statement) *Failure {
	if len(stmt.Args) < 2 {
		return r.fail(stmt, fmt.Sprintf("env action requires 2 arguments, got %d", len(stmt.Args)), "")
	}

	name, err := tctx.store.Expand(stmt.Args[0])
	if err != nil {
		return r.fail(stmt, err.Error(), "")
	}
	value, err := tctx.store.Expand(stmt.Args[1])
	if err != nil {
		return r.fail(stmt, err.Error(), "")
	}

	tctx.env[name] = value
	r.reporter.Check(fmt.Sprintf("set env %s=%q", name, value), true)
	return nil
}

// actionSnippet expands a snippet inline: same variable store, same
// working directory, same last process result. Re-entering a snippet
// that is already active is a cycle and fails the test.
func (r *Runner) actionSnippet(ctx context.Context, tctx *testContext, stmt *domain.Statement) *Failure {
	if len(stmt.Args) == 0 {
		return r.fail(stmt, "snippet invocation requires a snippet name", "")
	}

	name, err := tctx.store.Expand(stmt.Args[0])
	if err != nil {
		return r.fail(stmt, err.Error(), "")
	}

	snippet, ok := r.doc.Snippets[name]
	if !ok {
		return r.fail(stmt, fmt.Sprintf("unknown snippet %q", name), "")
	}

	for _, active := range tctx.activeSnippets {
		if active == name {
			return r.fail(stmt, fmt.Sprintf("snippet cycle detected: %s", strings.Join(append(tctx.activeSnippets, name), " -> ")), "")
		}
	}

	tctx.activeSnippets = append(tctx.activeSnippets, name)
	failure := r.runStatements(ctx, tctx, snippet.Statements)
	tctx.activeSnippets = tctx.activeSnippets[:len(tctx.activeSnippets)-1]
	return failure
}
