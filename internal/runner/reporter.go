package runner

import "github.com/frherrer/shellspec/internal/domain"

// Reporter receives run progress. The terminal implementation lives in
// internal/report; tests use NopReporter.
type Reporter interface {
	StartRun(tests, snippets int)
	StartTest(num, total int, name string)
	EndTest(name string, passed bool, failure *Failure)
	Comment(text string)
	Command(display string, stmt *domain.Statement, result *domain.ProcessResult, err error)
	Check(description string, ok bool)
	Summary(s *Summary)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) StartRun(int, int)                 {}
func (NopReporter) StartTest(int, int, string)        {}
func (NopReporter) EndTest(string, bool, *Failure)    {}
func (NopReporter) Comment(string)                    {}
func (NopReporter) Command(string, *domain.Statement, *domain.ProcessResult, error) {}
func (NopReporter) Check(string, bool)                {}
func (NopReporter) Summary(*Summary)                  {}
