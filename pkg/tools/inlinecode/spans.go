package inlinecode

import (
	"bytes"
	"strings"

	"github.com/entrhq/toolbox/pkg/vault"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Span is one inline code span of a note.
type Span struct {
	Text string
	// Line is 1-based and counts front matter lines.
	Line int
}

var parser = goldmark.New().Parser()

// Spans returns the inline code spans of content in document order. Fenced
// and indented code blocks are not inline code and are never returned. Front
// matter is skipped when it parses.
func Spans(content string) []Span {
	body := content
	if _, b, err := vault.ParseNote(content); err == nil && strings.HasSuffix(content, b) {
		body = b
	}
	offset := strings.Count(content[:len(content)-len(body)], "\n")

	src := []byte(body)
	doc := parser.Parse(text.NewReader(src))

	var spans []Span
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		code, ok := n.(*ast.CodeSpan)
		if !ok {
			return ast.WalkContinue, nil
		}

		var buf bytes.Buffer
		start := -1
		for c := code.FirstChild(); c != nil; c = c.NextSibling() {
			switch seg := c.(type) {
			case *ast.Text:
				if start < 0 {
					start = seg.Segment.Start
				}
				buf.Write(lineEndingsToSpaces(seg.Segment.Value(src)))
			case *ast.String:
				buf.Write(lineEndingsToSpaces(seg.Value))
			}
		}
		if buf.Len() == 0 {
			return ast.WalkSkipChildren, nil
		}

		line := offset + 1
		if start >= 0 {
			line += bytes.Count(src[:start], []byte("\n"))
		}
		spans = append(spans, Span{Text: buf.String(), Line: line})
		return ast.WalkSkipChildren, nil
	})
	return spans
}

// lineEndingsToSpaces renders a line ending inside a code span as a space.
func lineEndingsToSpaces(b []byte) []byte {
	b = bytes.ReplaceAll(b, []byte("\r\n"), []byte(" "))
	return bytes.ReplaceAll(b, []byte("\n"), []byte(" "))
}
