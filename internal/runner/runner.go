// Package runner walks a parsed spec document: one temp directory,
// variable store, and environment per test case, statements in file
// order, stop at the first failure, continue with the next test.
package runner

import (
	"context"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/frherrer/shellspec/internal/domain"
	"github.com/frherrer/shellspec/internal/driver"
	"github.com/frherrer/shellspec/internal/vars"
)

// Failure describes why a statement failed, with enough context to
// show a useful diagnostic.
type Failure struct {
	Line      int
	Statement string
	Message   string
	Context   string // trailing comment of the failed statement
	Output    string // relevant process output or file contents
}

// TestResult is the outcome of one executed test case.
type TestResult struct {
	Index   int // 1-based position in the document
	Name    string
	Passed  bool
	Failure *Failure
}

// Summary aggregates a whole run.
type Summary struct {
	Total   int // test cases in the document, before filtering
	Results []TestResult
}

// AllPassed reports whether every executed test passed.
func (s *Summary) AllPassed() bool {
	for _, r := range s.Results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// Passed counts passing results.
func (s *Summary) Passed() int {
	n := 0
	for _, r := range s.Results {
		if r.Passed {
			n++
		}
	}
	return n
}

// Failed counts failing results.
func (s *Summary) Failed() int {
	return len(s.Results) - s.Passed()
}

// Runner executes the test cases of one document.
type Runner struct {
	doc      *domain.Document
	driver   *driver.Driver
	reporter Reporter
	log      *logrus.Logger
}

// New creates a Runner. A nil reporter silences all output.
func New(doc *domain.Document, drv *driver.Driver, rep Reporter, log *logrus.Logger) *Runner {
	if rep == nil {
		rep = NopReporter{}
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(os.Stderr)
		log.SetLevel(logrus.WarnLevel)
	}
	return &Runner{doc: doc, driver: drv, reporter: rep, log: log}
}

// testContext is the per-test execution state. A fresh context per
// test case enforces isolation by construction.
type testContext struct {
	store          *vars.Store
	env            map[string]string
	workdir        string
	last           *domain.ProcessResult
	activeSnippets []string
}

// Run executes every test case matching the selector and returns the
// summary. Temp directories are removed best effort.
func (r *Runner) Run(ctx context.Context, selector string) (*Summary, error) {
	runsDir, err := os.MkdirTemp("", "shellspec-runs-")
	if err != nil {
		return nil, domain.NewError("run", r.doc.Path, 0, "failed to create runs directory", err)
	}
	defer os.RemoveAll(runsDir)

	summary := &Summary{Total: len(r.doc.Tests)}
	r.reporter.StartRun(len(r.doc.Tests), len(r.doc.Snippets))

	for i, tc := range r.doc.Tests {
		num := i + 1
		if !matchSelector(selector, num, tc.Name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		r.reporter.StartTest(num, len(r.doc.Tests), tc.Name)
		failure := r.runTest(ctx, tc, runsDir)
		passed := failure == nil
		r.reporter.EndTest(tc.Name, passed, failure)
		summary.Results = append(summary.Results, TestResult{
			Index:   num,
			Name:    tc.Name,
			Passed:  passed,
			Failure: failure,
		})
	}

	r.reporter.Summary(summary)
	return summary, nil
}

// runTest provisions an isolated working directory and walks the test
// case's statements. A nil return means the test passed.
func (r *Runner) runTest(ctx context.Context, tc *domain.TestCase, runsDir string) *Failure {
	workdir, err := os.MkdirTemp(runsDir, sanitizeTestName(tc.Name)+"-")
	if err != nil {
		return &Failure{
			Line:    tc.Line,
			Message: "failed to create test directory: " + err.Error(),
		}
	}
	defer os.RemoveAll(workdir)

	r.log.Debugf("test %q running in %s", tc.Name, workdir)

	tctx := &testContext{
		store:   vars.NewStore(),
		env:     make(map[string]string),
		workdir: workdir,
	}
	return r.runStatements(ctx, tctx, tc.Statements)
}

// runStatements executes statements in order and stops at the first
// failure. Snippet expansion re-enters here with the same context.
func (r *Runner) runStatements(ctx context.Context, tctx *testContext, statements []*domain.Statement) *Failure {
	for _, stmt := range statements {
		var failure *Failure
		switch stmt.Kind {
		case domain.KindComment:
			r.reporter.Comment(stmt.Comment)
			continue
		case domain.KindShell:
			failure = r.runShell(ctx, tctx, stmt)
		case domain.KindAssertion:
			failure = r.runAssertion(tctx, stmt)
		case domain.KindAction:
			failure = r.runAction(ctx, tctx, stmt)
		}
		if failure != nil {
			if failure.Context == "" {
				failure.Context = stmt.Comment
			}
			return failure
		}
	}
	return nil
}

// runShell executes one shell statement and checks its exit status
// against the statement's polarity.
func (r *Runner) runShell(ctx context.Context, tctx *testContext, stmt *domain.Statement) *Failure {
	args, err := tctx.store.ExpandAll(stmt.Args)
	if err != nil {
		return r.fail(stmt, err.Error(), "")
	}

	result, runErr := r.driver.Run(ctx, stmt, stmt.Target, args, tctx.workdir, tctx.env)
	tctx.last = result
	display := strings.TrimSpace(stmt.Target + " " + strings.Join(args, " "))
	r.reporter.Command(display, stmt, result, runErr)

	if runErr != nil {
		return r.fail(stmt, runErr.Error(), processOutput(result))
	}

	wantSuccess := !stmt.Negated
	gotSuccess := result.ExitCode == 0

	desc := "success (exit 0)"
	if !wantSuccess {
		desc = "error (exit non-zero)"
	}
	ok := wantSuccess == gotSuccess
	r.reporter.Check(desc, ok)
	if !ok {
		return r.fail(stmt,
			"expected "+desc+", got exit "+strconv.Itoa(result.ExitCode),
			processOutput(result))
	}
	return nil
}

func (r *Runner) fail(stmt *domain.Statement, message, output string) *Failure {
	return &Failure{
		Line:      stmt.Line,
		Statement: statementText(stmt),
		Message:   message,
		Output:    output,
	}
}

// processOutput joins the streams of a result for diagnostics.
func processOutput(result *domain.ProcessResult) string {
	if result == nil {
		return ""
	}
	var parts []string
	if result.Stdout != "" {
		parts = append(parts, result.Stdout)
	}
	if result.Stderr != "" {
		parts = append(parts, result.Stderr)
	}
	return strings.Join(parts, "\n")
}

// statementText reconstructs a statement roughly as written, for
// diagnostics.
func statementText(stmt *domain.Statement) string {
	var prefix string
	switch stmt.Kind {
	case domain.KindShell:
		prefix = "$."
		if stmt.Negated {
			prefix = "$!"
		}
	case domain.KindAssertion:
		prefix = "?."
		if stmt.Negated {
			prefix = "?!"
		}
	case domain.KindAction:
		prefix = ":."
	case domain.KindComment:
		return "# " + stmt.Comment
	}

	parts := []string{prefix, stmt.Target}
	for _, a := range stmt.Args {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, " ")
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// sanitizeTestName makes a test name safe for use as a directory name.
func sanitizeTestName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// matchSelector filters tests by 1-based index or case-insensitive
// substring of the test name. An empty selector matches everything.
func matchSelector(selector string, num int, name string) bool {
	if selector == "" {
		return true
	}
	if n, err := strconv.Atoi(selector); err == nil {
		return num == n
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(selector))
}
