package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docquiz/internal/doctree"
)

// TextParser handles plain text files. Form feeds separate pages, which is
// what pdftotext and most text dumps of paged documents emit.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := &doctree.Document{Title: trimExt(filename, ".txt")}
	current := doctree.RawPage{Number: 1}
	flush := func() {
		doc.Pages = append(doc.Pages, current)
		current = doctree.RawPage{Number: current.Number + 1}
	}

	seen := false
	for scanner.Scan() {
		seen = true
		line := strings.TrimSuffix(scanner.Text(), "\r")
		for {
			ff := strings.IndexByte(line, '\f')
			if ff < 0 {
				break
			}
			if head := line[:ff]; head != "" {
				current.Lines = append(current.Lines, head)
			}
			flush()
			line = line[ff+1:]
		}
		current.Lines = append(current.Lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if seen {
		flush()
	}

	return doc, nil
}
