package doctree

// Document is the raw output of a document text extractor.
type Document struct {
	Title string    // Document title (from metadata or filename)
	Pages []RawPage // Pages in reading order
}

// RawPage holds the unprocessed text lines of one page.
type RawPage struct {
	Number int      // 1-based page number
	Lines  []string // Lines as extracted, may be wrapped mid-sentence
}

// TextUnit is one normalized page, the unit handed to the entity tagger.
type TextUnit struct {
	Index int    // Sequence number within the document
	Page  int    // Source page number
	Text  string // Reconstructed text, line breaks only at paragraph/list boundaries
}

// LineCount returns the number of raw lines across all pages.
func (d *Document) LineCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Lines)
	}
	return n
}

// SplitLines breaks extracted page text into raw lines, dropping the
// trailing carriage returns some extractors leave behind.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := make([]string, 0, 32)
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '\n' {
			continue
		}
		lines = append(lines, trimCR(text[start:i]))
		start = i + 1
	}
	if start < len(text) {
		lines = append(lines, trimCR(text[start:]))
	}
	return lines
}

func trimCR(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}
