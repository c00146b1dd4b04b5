// Package parser turns spec-file text into a domain.Document. The
// grammar is line oriented: "> name" opens a test case, ">@ name" a
// snippet, and the statements below belong to it until the next header.
package parser

import (
	"fmt"
	"strings"

	"github.com/frherrer/shellspec/internal/domain"
)

// Parser consumes spec-file lines one at a time.
type Parser struct {
	path  string
	lines []string
	pos   int
	doc   *domain.Document
}

// Parse parses a complete spec file. All returned errors are
// *domain.SpecError values carrying the file path and line number.
func Parse(path string, content []byte) (*domain.Document, error) {
	lines := strings.Split(string(content), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}

	p := &Parser{
		path:  path,
		lines: lines,
		doc: &domain.Document{
			Path:     path,
			Snippets: make(map[string]*domain.Snippet),
		},
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.doc, nil
}

func (p *Parser) eof() bool {
	return p.pos >= len(p.lines)
}

// peek returns the next line with leading whitespace trimmed.
func (p *Parser) peek() string {
	return strings.TrimLeft(p.lines[p.pos], " \t")
}

func (p *Parser) consume() string {
	line := p.peek()
	p.pos++
	return line
}

// lineNumber is the 1-based number of the next unconsumed line.
func (p *Parser) lineNumber() int {
	return p.pos + 1
}

func (p *Parser) errorf(line int, format string, args ...any) error {
	return domain.NewError("parse", p.path, line, fmt.Sprintf(format, args...), nil)
}

func (p *Parser) parse() error {
	for !p.eof() {
		line := p.peek()
		switch {
		case line == "":
			p.consume()
		case strings.HasPrefix(line, "#"):
			p.consume()
		case strings.HasPrefix(line, ">"):
			if err := p.parseStanza(); err != nil {
				return err
			}
		default:
			return p.errorf(p.lineNumber(), "unknown line: %s", line)
		}
	}
	return nil
}

// parseStanza parses one "> name" or ">@ name" header and the
// statements below it.
func (p *Parser) parseStanza() error {
	headerLine := p.lineNumber()
	header := p.consume()

	isSnippet := strings.HasPrefix(header, ">@")
	var name string
	if isSnippet {
		name = strings.TrimSpace(header[2:])
	} else {
		name = strings.TrimSpace(header[1:])
	}
	if name == "" {
		return p.errorf(headerLine, "missing name in %q header", header[:1])
	}

	statements, err := p.parseStatements()
	if err != nil {
		return err
	}

	if isSnippet {
		if _, exists := p.doc.Snippets[name]; exists {
			return p.errorf(headerLine, "duplicate snippet name %q", name)
		}
		p.doc.Snippets[name] = &domain.Snippet{Name: name, Statements: statements, Line: headerLine}
	} else {
		p.doc.Tests = append(p.doc.Tests, &domain.TestCase{Name: name, Statements: statements, Line: headerLine})
	}
	return nil
}

// parseStatements parses until the next stanza header or EOF.
func (p *Parser) parseStatements() ([]*domain.Statement, error) {
	var statements []*domain.Statement

	for !p.eof() {
		line := p.peek()
		switch {
		case line == "":
			p.consume()
		case strings.HasPrefix(line, ">"):
			return statements, nil
		case strings.HasPrefix(line, "#"):
			lineNo := p.lineNumber()
			text := strings.TrimSpace(strings.TrimPrefix(p.consume(), "#"))
			statements = append(statements, &domain.Statement{
				Kind:    domain.KindComment,
				Comment: text,
				Line:    lineNo,
			})
		case strings.HasPrefix(line, ".."):
			return nil, p.errorf(p.lineNumber(), "dangling content block")
		case strings.HasPrefix(line, "$<") || strings.HasPrefix(line, "$>"):
			return nil, p.errorf(p.lineNumber(), "interactive step without a preceding shell command")
		default:
			stmt, trailing, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			statements = append(statements, stmt)
			statements = append(statements, trailing...)
		}
	}
	return statements, nil
}

// parseStatement parses one prefixed statement plus any attached
// interactive script and content block. Full-line comments consumed
// while scanning an interactive script are returned as trailing
// statements so they stay in the output.
func (p *Parser) parseStatement() (*domain.Statement, []*domain.Statement, error) {
	lineNo := p.lineNumber()
	line := p.consume()

	if len(line) < 2 {
		return nil, nil, p.errorf(lineNo, "invalid statement: %s", line)
	}

	prefix := line[:2]
	var kind domain.StatementKind
	var negated bool
	switch prefix {
	case "$.":
		kind = domain.KindShell
	case "$!":
		kind, negated = domain.KindShell, true
	case "?.":
		kind = domain.KindAssertion
	case "?!":
		kind, negated = domain.KindAssertion, true
	case ":.":
		kind = domain.KindAction
	default:
		return nil, nil, p.errorf(lineNo, "unknown statement prefix %q", prefix)
	}

	rest, comment := stripTrailingComment(line[2:])
	tokens, err := newTokenizer(strings.TrimSpace(rest)).tokenize()
	if err != nil {
		return nil, nil, p.errorf(lineNo, "%v", err)
	}
	if len(tokens) == 0 {
		return nil, nil, p.errorf(lineNo, "empty statement")
	}

	args, err := p.arguments(tokens[1:], lineNo)
	if err != nil {
		return nil, nil, err
	}

	stmt := &domain.Statement{
		Kind:    kind,
		Negated: negated,
		Target:  tokens[0].text,
		Args:    args,
		Comment: comment,
		Line:    lineNo,
	}

	var trailing []*domain.Statement
	if kind == domain.KindShell {
		trailing, err = p.parseScript(stmt)
		if err != nil {
			return nil, nil, err
		}
	}

	if err := p.parseContentBlock(stmt); err != nil {
		return nil, nil, err
	}

	if kind == domain.KindAssertion && (stmt.Target == "stdout" || stmt.Target == "stderr") &&
		len(stmt.Args) == 0 && !stmt.HasBlock {
		return nil, nil, p.errorf(lineNo, "%s assertion needs text or a content block", stmt.Target)
	}
	return stmt, trailing, nil
}

// arguments converts argument tokens to Literal or VarRef values. A
// bare unquoted token starting with "@" is a variable reference; the
// quoted form stays literal.
func (p *Parser) arguments(tokens []token, lineNo int) ([]domain.Argument, error) {
	var args []domain.Argument
	for _, tok := range tokens {
		if !tok.quoted && len(tok.text) > 1 && tok.text[0] == '@' {
			name := tok.text[1:]
			if !validVarName(name) {
				return nil, p.errorf(lineNo, "invalid variable name %q", tok.text)
			}
			args = append(args, domain.VarRef(name))
			continue
		}
		args = append(args, domain.Literal(tok.text))
	}
	return args, nil
}

// parseScript collects the "$<"/"$>" steps that follow a shell
// statement. Blank lines and comments between steps do not break the
// script; any other line ends it.
func (p *Parser) parseScript(stmt *domain.Statement) ([]*domain.Statement, error) {
	var comments []*domain.Statement

	for !p.eof() {
		line := p.peek()
		switch {
		case line == "":
			p.consume()
		case strings.HasPrefix(line, "#"):
			lineNo := p.lineNumber()
			text := strings.TrimSpace(strings.TrimPrefix(p.consume(), "#"))
			comments = append(comments, &domain.Statement{
				Kind:    domain.KindComment,
				Comment: text,
				Line:    lineNo,
			})
		case strings.HasPrefix(line, "$<") || strings.HasPrefix(line, "$>"):
			lineNo := p.lineNumber()
			raw := p.consume()

			kind := domain.Expect
			if raw[1] == '>' {
				kind = domain.Send
			}

			text, err := p.scriptText(raw[2:], lineNo)
			if err != nil {
				return nil, err
			}
			stmt.Script = append(stmt.Script, domain.Interaction{Kind: kind, Text: text, Line: lineNo})
		default:
			return comments, nil
		}
	}
	return comments, nil
}

// scriptText extracts the payload of an interactive step. A quoted
// payload goes through the tokenizer so escapes resolve; anything else
// is taken verbatim.
func (p *Parser) scriptText(rest string, lineNo int) (string, error) {
	rest, _ = stripTrailingComment(rest)
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", nil
	}
	if rest[0] == '"' || rest[0] == '\'' {
		tokens, err := newTokenizer(rest).tokenize()
		if err != nil {
			return "", p.errorf(lineNo, "%v", err)
		}
		if len(tokens) != 1 {
			return "", p.errorf(lineNo, "interactive step takes a single string")
		}
		return tokens[0].text, nil
	}
	return rest, nil
}

// parseContentBlock attaches the consecutive ".." lines following a
// statement. Attaching to a statement that cannot carry a block is a
// parse error.
func (p *Parser) parseContentBlock(stmt *domain.Statement) error {
	// Blank lines may separate the statement from its block.
	for !p.eof() && p.peek() == "" {
		p.consume()
	}
	if p.eof() || !strings.HasPrefix(p.peek(), "..") {
		return nil
	}

	if !admitsContentBlock(stmt) {
		return p.errorf(p.lineNumber(), "dangling content block")
	}

	stmt.HasBlock = true
	for !p.eof() && strings.HasPrefix(p.peek(), "..") {
		line := p.consume()
		switch {
		case line == "..":
			stmt.Content = append(stmt.Content, "")
		case strings.HasPrefix(line, ".. "):
			stmt.Content = append(stmt.Content, line[3:])
		default:
			stmt.Content = append(stmt.Content, line[2:])
		}
	}
	return nil
}

// admitsContentBlock reports whether a statement's shape allows ".."
// continuation lines: the file action, and the stdout/stderr/file
// assertions that have no inline text to compare against.
func admitsContentBlock(stmt *domain.Statement) bool {
	switch stmt.Kind {
	case domain.KindAction:
		return stmt.Target == "file"
	case domain.KindAssertion:
		switch stmt.Target {
		case "stdout", "stderr":
			return len(stmt.Args) == 0
		case "file":
			return len(stmt.Args) == 1
		}
	}
	return false
}

func validVarName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' {
			continue
		}
		return false
	}
	return true
}
