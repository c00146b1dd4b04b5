package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/frherrer/shellspec/internal/domain"
)

// runAssertion dispatches an assertion statement on its target. The
// statement's polarity inverts the underlying predicate before the
// pass/fail decision.
func (r *Runner) runAssertion(tctx *testContext, stmt *domain.Statement) *Failure {
	switch stmt.Target {
	case "stdout", "stderr":
		return r.assertStream(tctx, stmt)
	case "file":
		return r.assertFile(tctx, stmt)
	case "==", "!=", "startswith", "endswith", "contains":
		return r.assertComparison(tctx, stmt)
	default:
		return r.fail(stmt, fmt.Sprintf("unknown assertion target %q", stmt.Target), "")
	}
}

// check applies polarity and reports the outcome; non-nil only on
// failure.
func (r *Runner) check(stmt *domain.Statement, description string, predicate bool, output string) *Failure {
	ok := predicate != stmt.Negated
	r.reporter.Check(description, ok)
	if ok {
		return nil
	}
	return r.fail(stmt, "assertion failed: "+description, output)
}

// assertStream checks the last process result's stdout or stderr,
// either for a substring or for an exact content-block match.
func (r *Runner) assertStream(tctx *testContext, stmt *domain.Statement) *Failure {
	if tctx.last == nil {
		return r.fail(stmt, "no command has run yet", "")
	}

	stream := tctx.last.Stdout
	if stmt.Target == "stderr" {
		stream = tctx.last.Stderr
	}

	if stmt.HasBlock {
		expected := strings.Join(stmt.Content, "\n")
		matches := trimTrailingNewlines(stream) == trimTrailingNewlines(expected)

		desc := stmt.Target + " matches exactly"
		if stmt.Negated {
			desc = stmt.Target + " differs"
		}
		return r.check(stmt, desc, matches, stream)
	}

	if len(stmt.Args) == 0 {
		return r.fail(stmt, "assertion missing arguments", "")
	}

	text, err := tctx.store.Expand(stmt.Args[0])
	if err != nil {
		return r.fail(stmt, err.Error(), "")
	}

	found := strings.Contains(stream, text)
	desc := fmt.Sprintf("%s has %q", stmt.Target, text)
	if stmt.Negated {
		desc = fmt.Sprintf("%s lacks %q", stmt.Target, text)
	}
	return r.check(stmt, desc, found, stream)
}

// assertFile checks existence and, with a second argument or a content
// block, the contents of a file under the test's working directory.
func (r *Runner) assertFile(tctx *testContext, stmt *domain.Statement) *Failure {
	if len(stmt.Args) == 0 {
		return r.fail(stmt, "file assertion requires a path", "")
	}

	path, err := tctx.store.Expand(stmt.Args[0])
	if err != nil {
		return r.fail(stmt, err.Error(), "")
	}
	full := tctx.resolve(path)

	_, statErr := os.Stat(full)
	exists := statErr == nil

	var contents string
	if exists {
		data, readErr := os.ReadFile(full)
		if readErr != nil {
			return r.fail(stmt, fmt.Sprintf("failed to read file %q: %v", path, readErr), "")
		}
		contents = string(data)
	}

	switch {
	case len(stmt.Args) >= 2:
		text, err := tctx.store.Expand(stmt.Args[1])
		if err != nil {
			return r.fail(stmt, err.Error(), "")
		}
		predicate := exists && strings.Contains(contents, text)
		desc := fmt.Sprintf("file %q has %q", path, text)
		if stmt.Negated {
			desc = fmt.Sprintf("file %q lacks %q", path, text)
		}
		return r.check(stmt, desc, predicate, contents)

	case stmt.HasBlock:
		expected := strings.Join(stmt.Content, "\n")
		predicate := exists && trimTrailingNewlines(contents) == trimTrailingNewlines(expected)
		desc := fmt.Sprintf("file %q contents match", path)
		if stmt.Negated {
			desc = fmt.Sprintf("file %q contents don't match", path)
		}
		return r.check(stmt, desc, predicate,
			fmt.Sprintf("File:\n%s\nTest:\n%s", contents, expected))

	default:
		desc := fmt.Sprintf("file %q exists", path)
		if stmt.Negated {
			desc = fmt.Sprintf("file %q doesn't exist", path)
		}
		return r.check(stmt, desc, exists, "")
	}
}

// assertComparison evaluates the ==, !=, startswith, endswith and
// contains predicates over expanded arguments.
func (r *Runner) assertComparison(tctx *testContext, stmt *domain.Statement) *Failure {
	if len(stmt.Args) < 2 {
		return r.fail(stmt, fmt.Sprintf("%q assertion requires 2 arguments", stmt.Target), "")
	}

	left, err := tctx.store.Expand(stmt.Args[0])
	if err != nil {
		return r.fail(stmt, err.Error(), "")
	}
	right, err := tctx.store.Expand(stmt.Args[1])
	if err != nil {
		return r.fail(stmt, err.Error(), "")
	}

	var predicate bool
	var verb, negVerb string
	switch stmt.Target {
	case "==":
		predicate = left == right
		verb, negVerb = "==", "!="
	case "!=":
		predicate = left != right
		verb, negVerb = "!=", "=="
	case "startswith":
		predicate = strings.HasPrefix(left, right)
		verb, negVerb = "startswith", "!startswith"
	case "endswith":
		predicate = strings.HasSuffix(left, right)
		verb, negVerb = "endswith", "!endswith"
	case "contains":
		predicate = strings.Contains(left, right)
		verb, negVerb = "contains", "lacks"
	}

	if stmt.Negated {
		verb = negVerb
	}
	desc := fmt.Sprintf("'%s' %s '%s'", stmt.Args[0], verb, stmt.Args[1])
	detail := fmt.Sprintf("left: %q\nright: %q", left, right)
	return r.check(stmt, desc, predicate, detail)
}

// resolve anchors a relative path at the test's working directory.
func (t *testContext) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(t.workdir, path)
}

// trimTrailingNewlines normalizes both sides of an exact comparison;
// substring checks see the stream as captured.
func trimTrailingNewlines(s string) string {
	return strings.TrimRight(s, "\n")
}
