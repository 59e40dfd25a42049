package parser

import (
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/docquiz/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. The whole file is
// one page; blocks keep their source line wrapping so the normalizer sees
// the same layout a reader does.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	out := &doctree.Document{Title: trimExt(filename, ".md", ".markdown")}

	var lines []string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		block := blockLines(n, src)
		if len(block) == 0 {
			continue
		}
		// A heading has no terminal punctuation, so give it its own line.
		if h, ok := n.(*ast.Heading); ok && h.Level > 0 {
			block[len(block)-1] = ensureTerminal(block[len(block)-1])
		}
		lines = append(lines, block...)
		lines = append(lines, "")
	}
	if len(lines) > 0 {
		out.Pages = []doctree.RawPage{{Number: 1, Lines: lines[:len(lines)-1]}}
	}
	return out, nil
}

// blockLines renders a top-level block as raw lines. List items are
// prefixed with a bullet so they read as list starts.
func blockLines(n ast.Node, src []byte) []string {
	switch node := n.(type) {
	case *ast.List:
		var out []string
		i := node.Start
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			itemLines := nestedLines(item, src)
			if len(itemLines) == 0 {
				continue
			}
			marker := "• "
			if node.IsOrdered() {
				marker = strconv.Itoa(i) + ". "
				i++
			}
			itemLines[0] = marker + itemLines[0]
			out = append(out, itemLines...)
		}
		return out
	case *ast.ThematicBreak, *ast.HTMLBlock:
		return nil
	default:
		return nestedLines(n, src)
	}
}

// nestedLines collects the source lines of a block and its block children.
func nestedLines(n ast.Node, src []byte) []string {
	var out []string
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			line := strings.TrimRight(string(seg.Value(src)), "\r\n")
			if _, ok := n.(*ast.Heading); !ok {
				line = stripInlineMarkup(line)
			}
			out = append(out, line)
		}
		return out
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Type() == ast.TypeBlock {
			out = append(out, blockLines(c, src)...)
		}
	}
	return out
}

var inlineMarkup = strings.NewReplacer("**", "", "__", "", "`", "")

func stripInlineMarkup(s string) string {
	return inlineMarkup.Replace(s)
}

func ensureTerminal(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	switch s[len(s)-1] {
	case '.', ':', '?', '!':
		return s
	}
	return s + ":"
}
