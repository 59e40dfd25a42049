package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/docquiz/internal/doctree"
	"golang.org/x/text/unicode/norm"
)

// BlankLinePolicy decides what an empty raw line means.
type BlankLinePolicy int

const (
	// DiscardBlankLines drops empty lines; wrapped text continues across them.
	DiscardBlankLines BlankLinePolicy = iota
	// ParagraphBreaks treats an empty line as the end of a paragraph.
	ParagraphBreaks
)

func (p BlankLinePolicy) String() string {
	if p == ParagraphBreaks {
		return "paragraph"
	}
	return "discard"
}

// ParseBlankLinePolicy accepts "discard" or "paragraph".
func ParseBlankLinePolicy(s string) (BlankLinePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "discard":
		return DiscardBlankLines, nil
	case "paragraph", "paragraphs":
		return ParagraphBreaks, nil
	}
	return DiscardBlankLines, fmt.Errorf("unknown blank line policy %q", s)
}

// Config controls layout reconstruction.
type Config struct {
	BlankLines        BlankLinePolicy
	RepairHyphenation bool // Join "exam-" + "ple" into "example".
	FoldUnicode       bool // NFKC-fold lines so PDF ligatures become plain letters.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BlankLines:        DiscardBlankLines,
		RepairHyphenation: true,
		FoldUnicode:       true,
	}
}

// Warning is a recoverable layout ambiguity. Line is 1-based within the page.
type Warning struct {
	Page    int
	Line    int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("page %d line %d: %s", w.Page, w.Line, w.Message)
}

// Result is the normalized form of a whole document.
type Result struct {
	Units    []doctree.TextUnit
	Warnings []Warning
}

// Normalize rebuilds every page of doc into a TextUnit. Pages are kept as
// separate units so no sentence is stitched across a page break; pages
// with no text produce no unit.
func Normalize(doc *doctree.Document, cfg Config) Result {
	var res Result
	if doc == nil {
		return res
	}
	for _, page := range doc.Pages {
		text, warns := NormalizePage(page, cfg)
		res.Warnings = append(res.Warnings, warns...)
		if text == "" {
			continue
		}
		res.Units = append(res.Units, doctree.TextUnit{
			Index: len(res.Units),
			Page:  page.Number,
			Text:  text,
		})
	}
	return res
}

// Reconstruct joins units into the document-level text, pages separated
// by an empty line.
func Reconstruct(units []doctree.TextUnit) string {
	parts := make([]string, len(units))
	for i, u := range units {
		parts[i] = u.Text
	}
	return strings.Join(parts, "\n\n")
}

// rawLine keeps the source position of a cleaned line for warnings.
// An empty text marks a paragraph break.
type rawLine struct {
	text string
	num  int
}

// NormalizePage merges the wrapped lines of one page into logical lines.
func NormalizePage(page doctree.RawPage, cfg Config) (string, []Warning) {
	lines := cleanLines(page.Lines, cfg)
	lines, warns := mergeParentheticals(lines, page.Number)

	var out []string
	var cur string
	flush := func() {
		if cur != "" {
			out = append(out, cur)
		}
		cur = ""
	}

	for _, l := range lines {
		switch {
		case l.text == "":
			flush()
		case IsListStart(l.text):
			flush()
			cur = l.text
		case cur == "":
			cur = l.text
		case endsSentence(cur):
			flush()
			cur = l.text
		case cfg.RepairHyphenation && hyphenBreak(cur, l.text):
			cur = cur[:len(cur)-1] + l.text
		default:
			cur += " " + l.text
		}
	}
	flush()

	return strings.Join(out, "\n"), warns
}

func cleanLines(raw []string, cfg Config) []rawLine {
	lines := make([]rawLine, 0, len(raw))
	for i, s := range raw {
		if cfg.FoldUnicode {
			s = norm.NFKC.String(s)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			if cfg.BlankLines == ParagraphBreaks && len(lines) > 0 && lines[len(lines)-1].text != "" {
				lines = append(lines, rawLine{num: i + 1})
			}
			continue
		}
		lines = append(lines, rawLine{text: s, num: i + 1})
	}
	return lines
}

// mergeParentheticals joins a line holding an unclosed "(" with the
// following lines while they carry a ")". Paragraph breaks between them
// are dropped so the parenthetical stays on one line.
func mergeParentheticals(lines []rawLine, pageNum int) ([]rawLine, []Warning) {
	var out []rawLine
	var warns []Warning
	for i := 0; i < len(lines); i++ {
		l := lines[i]
		if l.text == "" {
			out = append(out, l)
			continue
		}
		for openParens(l.text) > 0 {
			j := i + 1
			for j < len(lines) && lines[j].text == "" {
				j++
			}
			if j >= len(lines) || !strings.Contains(lines[j].text, ")") {
				break
			}
			l.text += " " + lines[j].text
			i = j
		}
		if openParens(l.text) > 0 {
			warns = append(warns, Warning{
				Page:    pageNum,
				Line:    l.num,
				Message: "unclosed parenthesis",
			})
		}
		out = append(out, l)
	}
	return out, warns
}

func openParens(s string) int {
	return strings.Count(s, "(") - strings.Count(s, ")")
}

var numberedItem = regexp.MustCompile(`^\d+\.`)

const bulletGlyphs = "•●○◦▪■□►➢✓"

// IsListStart reports whether a cleaned line opens a bullet or numbered item.
func IsListStart(line string) bool {
	if line == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(line)
	if r == '-' || strings.ContainsRune(bulletGlyphs, r) {
		return true
	}
	return numberedItem.MatchString(line)
}

func endsSentence(s string) bool {
	switch s[len(s)-1] {
	case '.', ':', '?':
		return true
	}
	return false
}

// hyphenBreak reports a word split across lines: "inter-" then "national".
func hyphenBreak(cur, next string) bool {
	if !strings.HasSuffix(cur, "-") || len(cur) < 2 {
		return false
	}
	prev, _ := utf8.DecodeLastRuneInString(cur[:len(cur)-1])
	first, _ := utf8.DecodeRuneInString(next)
	return unicode.IsLetter(prev) && unicode.IsLower(first)
}
