package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dgallion1/docquiz/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. Browsers reflow HTML text, so each block
// element becomes a single line and blocks are separated by blank lines.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	dom, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc := &doctree.Document{Title: trimExt(filename, ".html", ".htm")}
	if title := collapseSpace(dom.Find("title").First().Text()); title != "" {
		doc.Title = title
	}

	dom.Find("script, style, nav, footer, header, noscript").Remove()

	root := dom.Find("body").First()
	if root.Length() == 0 {
		root = dom.Selection
	}

	var lines []string
	emit := func(line string) {
		if line == "" {
			return
		}
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, line)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			sel := goquery.NewDocumentFromNode(n).Selection
			switch n.Data {
			case "h1", "h2", "h3", "h4", "h5", "h6":
				emit(ensureTerminal(collapseSpace(sel.Text())))
				return
			case "li":
				if t := collapseSpace(sel.Text()); t != "" {
					emit("• " + t)
				}
				return
			case "p", "td", "th", "blockquote", "dt", "dd", "figcaption":
				emit(collapseSpace(sel.Text()))
				return
			case "pre":
				if len(lines) > 0 {
					lines = append(lines, "")
				}
				lines = append(lines, doctree.SplitLines(strings.Trim(sel.Text(), "\n"))...)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range root.Nodes {
		walk(n)
	}

	if len(lines) > 0 {
		doc.Pages = []doctree.RawPage{{Number: 1, Lines: lines}}
	}
	return doc, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
