// Package report renders run progress for a terminal: colored test
// headers, green/red command echo, grey left-bordered output blocks in
// verbose mode, and a summary footer.
package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"

	"github.com/frherrer/shellspec/internal/domain"
	"github.com/frherrer/shellspec/internal/runner"
)

// palette holds the ANSI escape sequences used by the reporter. The
// zero value renders plain text.
type palette struct {
	red, green, blue, yellow, grey, bold, clear string
}

var colorPalette = palette{
	red:    "\033[31m",
	green:  "\033[32m",
	blue:   "\033[34m",
	yellow: "\033[33m",
	grey:   "\033[90m",
	bold:   "\033[1m",
	clear:  "\033[0m",
}

// Terminal implements runner.Reporter.
type Terminal struct {
	out     io.Writer
	colors  palette
	verbose bool
	width   int
	started int // tests reported so far, for rules between tests
}

// Option configures a Terminal reporter.
type Option func(*Terminal)

// WithVerbose echoes captured process output after each command.
func WithVerbose(v bool) Option {
	return func(t *Terminal) { t.verbose = v }
}

// WithColors forces colors on or off; the default enables them only
// when out is a terminal.
func WithColors(enabled bool) Option {
	return func(t *Terminal) {
		if enabled {
			t.colors = colorPalette
		} else {
			t.colors = palette{}
		}
	}
}

// NewTerminal creates a reporter writing to out.
func NewTerminal(out io.Writer, opts ...Option) *Terminal {
	t := &Terminal{out: out, width: 80}
	if f, ok := out.(interface{ Fd() uintptr }); ok && term.IsTerminal(int(f.Fd())) {
		t.colors = colorPalette
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			t.width = w
		}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Terminal) StartRun(tests, snippets int) {
	c := t.colors
	fmt.Fprintf(t.out, "%s%sShellSpec Test Runner%s\n", c.bold, c.blue, c.clear)
	fmt.Fprintf(t.out, "Found %d test cases and %d snippets\n\n", tests, snippets)
}

func (t *Terminal) StartTest(num, total int, name string) {
	c := t.colors
	if t.started > 0 {
		fmt.Fprintln(t.out)
		t.rule()
	}
	t.started++
	fmt.Fprintf(t.out, "%s%s[%d/%d] %s%s\n", c.bold, c.yellow, num, total, name, c.clear)
}

func (t *Terminal) EndTest(name string, passed bool, failure *runner.Failure) {
	c := t.colors
	if passed {
		fmt.Fprintf(t.out, "\n%s%sPASS%s\n", c.bold, c.green, c.clear)
		return
	}
	if failure != nil {
		fmt.Fprintf(t.out, "%sline %d: %s%s\n", c.red, failure.Line, failure.Message, c.clear)
		if failure.Statement != "" {
			fmt.Fprintf(t.out, "  %s\n", failure.Statement)
		}
		if failure.Context != "" {
			fmt.Fprintf(t.out, "  Context: %s\n", failure.Context)
		}
		if failure.Output != "" {
			t.bordered(failure.Output, c.red)
		}
	}
	fmt.Fprintf(t.out, "\n%s%sFAIL%s\n", c.bold, c.red, c.clear)
}

func (t *Terminal) Comment(text string) {
	fmt.Fprintf(t.out, "\n◼ %s\n", text)
}

func (t *Terminal) Command(display string, stmt *domain.Statement, result *domain.ProcessResult, err error) {
	c := t.colors
	color := c.green
	switch {
	case err != nil:
		color = c.red
	case stmt.Interactive():
		color = c.blue
	case result != nil && result.ExitCode != 0:
		color = c.red
	}
	fmt.Fprintf(t.out, "%s%s%s\n", color, display, c.clear)

	if stmt.Interactive() {
		for _, step := range stmt.Script {
			verb := "expect"
			if step.Kind == domain.Send {
				verb = "send"
			}
			t.bordered(fmt.Sprintf("%s: %s", verb, step.Text), c.grey)
		}
		if result != nil {
			t.bordered(fmt.Sprintf("exit: %d", result.ExitCode), c.grey)
		}
	}

	if t.verbose && result != nil {
		if s := strings.TrimSpace(result.Stderr); s != "" {
			t.bordered(strings.TrimRight(result.Stderr, "\n"), c.yellow)
		}
		if s := strings.TrimSpace(result.Stdout); s != "" {
			t.bordered(strings.TrimRight(result.Stdout, "\n"), c.grey)
		}
	}
}

func (t *Terminal) Check(description string, ok bool) {
	c := t.colors
	if ok {
		fmt.Fprintf(t.out, "%s▸ %s ✓%s\n", c.green, description, c.clear)
	} else {
		fmt.Fprintf(t.out, "%s▸ %s ✗%s\n", c.red, description, c.clear)
	}
}

func (t *Terminal) Summary(s *runner.Summary) {
	c := t.colors
	fmt.Fprintln(t.out)
	t.rule()
	fmt.Fprintf(t.out, "%sTest Results%s\n", c.bold, c.clear)
	fmt.Fprintf(t.out, "  %s%d passed%s, %s%d failed%s out of %d tests\n",
		c.green, s.Passed(), c.clear, c.red, s.Failed(), c.clear, s.Total)

	var failed []runner.TestResult
	for _, r := range s.Results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintf(t.out, "\n%sFailed tests:%s\n", c.bold, c.clear)
		for _, r := range failed {
			fmt.Fprintf(t.out, "  %s• [%d] %s%s\n", c.red, r.Index, r.Name, c.clear)
		}
	}

	fmt.Fprintln(t.out)
	if len(failed) == 0 {
		fmt.Fprintf(t.out, "%s%sAll tests passed!%s\n", c.bold, c.green, c.clear)
	} else {
		fmt.Fprintf(t.out, "%s%sSome tests failed%s\n", c.bold, c.red, c.clear)
	}
}

// rule prints a horizontal rule spanning the terminal width.
func (t *Terminal) rule() {
	c := t.colors
	fmt.Fprintf(t.out, "%s%s%s\n", c.grey, strings.Repeat("─", t.width), c.clear)
}

// bordered prints text with a colored left border, wrapping long lines
// to the terminal width.
func (t *Terminal) bordered(text string, borderColor string) {
	c := t.colors
	contentWidth := t.width - 2
	if contentWidth < 1 {
		contentWidth = 78
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			fmt.Fprintf(t.out, "%s│%s\n", borderColor, c.clear)
			continue
		}
		for len(line) > 0 {
			chunk := line
			if len(chunk) > contentWidth {
				chunk = line[:contentWidth]
			}
			line = line[len(chunk):]
			fmt.Fprintf(t.out, "%s│%s %s%s%s\n", borderColor, c.clear, c.grey, chunk, c.clear)
		}
	}
}
