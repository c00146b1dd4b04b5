// Package docs extracts embedded spec blocks from markdown files, so
// documentation can double as an executable test suite. A fenced code
// block whose info string names one of the configured tags is treated
// as spec-file text.
package docs

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/frherrer/shellspec/internal/domain"
)

// Extract returns the concatenated contents of all fenced code blocks
// tagged with any of tags, in document order. The result parses like a
// standalone spec file.
func Extract(path string, content []byte, tags []string) ([]byte, error) {
	md := goldmark.New()
	reader := text.NewReader(content)
	doc := md.Parser().Parse(reader)

	tagSet := make(map[string]bool)
	for _, t := range tags {
		tagSet[t] = true
	}

	var out bytes.Buffer
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		fence, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var info string
		if fence.Info != nil {
			info = string(fence.Info.Segment.Value(content))
		}
		tag := strings.Fields(info)
		if len(tag) == 0 || !tagSet[tag[0]] {
			return ast.WalkContinue, nil
		}

		lines := fence.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			out.Write(line.Value(content))
		}
		// Keep blocks separated so a statement never runs into the
		// next block's header line.
		out.WriteByte('\n')
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, domain.NewError("parse", path, 0, "failed to walk markdown document", err)
	}

	return out.Bytes(), nil
}
