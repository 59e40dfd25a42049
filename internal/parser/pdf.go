package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/docquiz/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser handles PDF files. It tries the Go library first,
// then falls back to pdftotext if enabled.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "docquiz-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	pages, err := extractPDFPages(tmpPath)
	if err != nil && p.FallbackPdftotext {
		var fbErr error
		pages, fbErr = extractPdftotext(tmpPath)
		if fbErr != nil {
			err = fmt.Errorf("%w (pdftotext fallback: %v)", err, fbErr)
		} else {
			err = nil
		}
	}
	if err != nil {
		return nil, asFailure(filename, err)
	}

	doc := &doctree.Document{Title: trimExt(filename, ".pdf")}
	for i, lines := range pages {
		doc.Pages = append(doc.Pages, doctree.RawPage{Number: i + 1, Lines: lines})
	}
	return doc, nil
}

// extractPDFPages returns the raw lines of every page. The pdf library
// panics on some malformed page trees; those panics become an
// ExtractionFailure for the page being read.
func extractPDFPages(path string) (pages [][]string, err error) {
	page := 0
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = &ExtractionFailure{Page: page, Err: fmt.Errorf("malformed pdf: %v", rec)}
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := reader.NumPage()
	pages = make([][]string, 0, numPages)
	for page = 1; page <= numPages; page++ {
		pg := reader.Page(page)
		if pg.V.IsNull() {
			pages = append(pages, nil)
			continue
		}
		lines, err := pageLines(pg)
		if err != nil {
			return nil, &ExtractionFailure{Page: page, Err: err}
		}
		pages = append(pages, lines)
	}
	return pages, nil
}

// pageLines rebuilds visual lines from positioned text runs, falling back
// to the plain-text stream when row grouping is unavailable.
func pageLines(pg pdflib.Page) ([]string, error) {
	rows, err := pg.GetTextByRow()
	if err != nil || len(rows) == 0 {
		text, perr := pg.GetPlainText(nil)
		if perr != nil {
			if err != nil {
				return nil, err
			}
			return nil, perr
		}
		return doctree.SplitLines(text), nil
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var sb strings.Builder
		var prev *pdflib.Text
		for i := range row.Content {
			t := row.Content[i]
			if prev != nil && needsSpace(*prev, t) {
				sb.WriteByte(' ')
			}
			sb.WriteString(t.S)
			prev = &row.Content[i]
		}
		lines = append(lines, sb.String())
	}
	return lines, nil
}

// needsSpace reports whether a visible gap separates two runs on one row.
func needsSpace(prev, next pdflib.Text) bool {
	if strings.HasSuffix(prev.S, " ") || strings.HasPrefix(next.S, " ") {
		return false
	}
	gap := next.X - (prev.X + prev.W)
	return gap > prev.FontSize*0.15
}

func extractPdftotext(path string) ([][]string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return splitPages(string(out)), nil
}

// splitPages splits form-feed separated text into per-page lines.
func splitPages(text string) [][]string {
	text = strings.TrimSuffix(text, "\f")
	if text == "" {
		return nil
	}
	parts := strings.Split(text, "\f")
	pages := make([][]string, 0, len(parts))
	for _, part := range parts {
		pages = append(pages, doctree.SplitLines(part))
	}
	return pages
}
