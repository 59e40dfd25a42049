package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLParser_BlockLines(t *testing.T) {
	input := `<html><head><title>  Roman   History </title><style>p{}</style></head>
<body>
<nav>Home | About</nav>
<h1>Founding</h1>
<p>Rome was founded
   on the Tiber.</p>
<ul><li>Senate</li><li>Consuls</li></ul>
<script>var x = 1;</script>
<footer>copyright</footer>
</body></html>`

	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "rome.html")
	require.NoError(t, err)
	assert.Equal(t, "Roman History", doc.Title)
	require.Len(t, doc.Pages, 1)

	want := []string{
		"Founding:",
		"",
		"Rome was founded on the Tiber.",
		"",
		"• Senate",
		"",
		"• Consuls",
	}
	assert.Equal(t, want, doc.Pages[0].Lines)
}

func TestHTMLParser_TitleFallsBackToFilename(t *testing.T) {
	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader("<p>Only text.</p>"), "page.htm")
	require.NoError(t, err)
	assert.Equal(t, "page", doc.Title)
	require.Len(t, doc.Pages, 1)
	assert.Equal(t, "Only text.", doc.Pages[0].Lines[0])
}

func TestHTMLParser_NoContent(t *testing.T) {
	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader("<html><body><script>x()</script></body></html>"), "x.html")
	require.NoError(t, err)
	assert.Empty(t, doc.Pages)
}
