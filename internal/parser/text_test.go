package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextParser_SinglePage(t *testing.T) {
	input := "First line one\nwraps here.\n\nSecond paragraph."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "notes.txt")
	require.NoError(t, err)

	assert.Equal(t, "notes", doc.Title)
	require.Len(t, doc.Pages, 1)
	assert.Equal(t, []string{"First line one", "wraps here.", "", "Second paragraph."}, doc.Pages[0].Lines)
}

func TestTextParser_FormFeedSplitsPages(t *testing.T) {
	input := "Page one text.\n\fPage two text.\nMore two.\fPage three."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "paged.txt")
	require.NoError(t, err)
	require.Len(t, doc.Pages, 3)

	for i, pg := range doc.Pages {
		assert.Equal(t, i+1, pg.Number, "page %d", i)
	}
	assert.Equal(t, []string{"Page two text.", "More two."}, doc.Pages[1].Lines)
	assert.Equal(t, []string{"Page three."}, doc.Pages[2].Lines)
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.txt")
	require.NoError(t, err)
	assert.Equal(t, "empty", doc.Title)
	assert.Empty(t, doc.Pages)
}

func TestTextParser_CarriageReturns(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader("a line\r\nanother\r\n"), "crlf.txt")
	require.NoError(t, err)
	require.NotEmpty(t, doc.Pages)
	assert.Equal(t, []string{"a line", "another"}, doc.Pages[0].Lines)
}

func TestSplitPages(t *testing.T) {
	pages := splitPages("one\ntwo\fthree\f")
	require.Len(t, pages, 2)
	assert.Equal(t, []string{"one", "two"}, pages[0])
	assert.Equal(t, []string{"three"}, pages[1])
}

func TestForFile(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"a.pdf", false},
		{"a.TXT", false},
		{"a.md", false},
		{"a.htm", false},
		{"a.docx", false},
		{"a.csv", true},
		{"noext", true},
	}
	for _, tt := range tests {
		_, err := ForFile(tt.name, Options{})
		if tt.wantErr {
			assert.Error(t, err, "ForFile(%q)", tt.name)
		} else {
			assert.NoError(t, err, "ForFile(%q)", tt.name)
		}
	}
}

func TestParseBytes_UnsupportedIsExtractionFailure(t *testing.T) {
	_, err := ParseBytes([]byte("x"), "data.xyz", Options{})
	var ef *ExtractionFailure
	require.ErrorAs(t, err, &ef)
	assert.Equal(t, "data.xyz", ef.Filename)
}

func TestPDFParser_MalformedInputFails(t *testing.T) {
	p := &PDFParser{}
	_, err := p.Parse(strings.NewReader("this is not a pdf"), "broken.pdf")
	var ef *ExtractionFailure
	require.ErrorAs(t, err, &ef)
}
