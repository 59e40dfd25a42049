package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownParser_BlocksBecomeLines(t *testing.T) {
	input := `# Title

Intro text that wraps
onto a second line.

## Section A

- first bullet
- second bullet

1. one
2. two
`
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "doc.md")
	require.NoError(t, err)
	assert.Equal(t, "doc", doc.Title)
	require.Len(t, doc.Pages, 1)

	want := []string{
		"Title:",
		"",
		"Intro text that wraps",
		"onto a second line.",
		"",
		"Section A:",
		"",
		"• first bullet",
		"• second bullet",
		"",
		"1. one",
		"2. two",
	}
	assert.Equal(t, want, doc.Pages[0].Lines)
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.md")
	require.NoError(t, err)
	assert.Empty(t, doc.Pages)
}

func TestMarkdownParser_TitleStripping(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"readme.md", "readme"},
		{"notes.markdown", "notes"},
		{"plain.md", "plain"},
	}
	p := &MarkdownParser{}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			doc, err := p.Parse(strings.NewReader("text"), tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.Title)
		})
	}
}

func TestEnsureTerminal(t *testing.T) {
	tests := map[string]string{
		"Heading":    "Heading:",
		"Question?":  "Question?",
		"Done.":      "Done.",
		"  Spaced  ": "Spaced:",
		"":           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ensureTerminal(in), "ensureTerminal(%q)", in)
	}
}
