// Package chunker splits oversized text units into pieces a tagger accepts
// and stitches the tagged pieces back together.
package chunker

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/dgallion1/docquiz/internal/ner"
)

// DefaultMaxBytes keeps requests well under spaCy's default max_length.
const DefaultMaxBytes = 100_000

// Piece is a substring of the split text: Text == text[Offset:Offset+len(Text)].
type Piece struct {
	Text   string
	Offset int
}

type span struct{ start, end int }

// Split breaks text into pieces of at most maxBytes. Lines are kept whole
// where possible since each flushed line is a sentence; a longer line is
// cut after a sentence end, then at a space, then at a rune boundary.
// Newlines between pieces are dropped. maxBytes <= 0 disables splitting.
func Split(text string, maxBytes int) []Piece {
	if text == "" {
		return nil
	}
	if maxBytes <= 0 || len(text) <= maxBytes {
		return []Piece{{Text: text}}
	}

	var out []Piece
	start, end := 0, 0
	open := false
	flush := func() {
		if open {
			out = append(out, Piece{Text: text[start:end], Offset: start})
			open = false
		}
	}

	for _, ln := range lines(text) {
		if ln.end-ln.start > maxBytes {
			flush()
			out = append(out, splitLong(text, ln.start, ln.end, maxBytes)...)
			continue
		}
		if open && ln.end-start > maxBytes {
			flush()
		}
		if !open && ln.start == ln.end {
			continue
		}
		if !open {
			start = ln.start
			open = true
		}
		end = ln.end
	}
	flush()
	return out
}

// lines returns the byte range of each line, excluding the newline.
func lines(text string) []span {
	var out []span
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			out = append(out, span{start, i})
			start = i + 1
		}
	}
	return append(out, span{start, len(text)})
}

// splitLong cuts text[s:e] into pieces of at most maxBytes.
func splitLong(text string, s, e, maxBytes int) []Piece {
	var out []Piece
	cur := s
	for cur < e {
		if e-cur <= maxBytes {
			out = append(out, Piece{Text: text[cur:e], Offset: cur})
			break
		}
		cut := sentenceCut(text, cur, cur+maxBytes)
		if cut < 0 {
			cut = spaceCut(text, cur, cur+maxBytes)
		}
		if cut < 0 {
			cut = runeCut(text, cur, cur+maxBytes)
		}
		out = append(out, Piece{Text: text[cur:cut], Offset: cur})
		cur = cut
		for cur < e && text[cur] == ' ' {
			cur++
		}
	}
	return out
}

// sentenceCut returns the index just past the last ". ", "! " or "? "
// punctuation in (cur, limit], or -1.
func sentenceCut(text string, cur, limit int) int {
	for i := limit - 1; i > cur; i-- {
		switch text[i] {
		case '.', '!', '?':
			if i+1 < len(text) && text[i+1] == ' ' {
				return i + 1
			}
		}
	}
	return -1
}

func spaceCut(text string, cur, limit int) int {
	for i := limit; i > cur; i-- {
		if text[i] == ' ' {
			return i
		}
	}
	return -1
}

func runeCut(text string, cur, limit int) int {
	for i := limit; i > cur; i-- {
		if utf8.RuneStart(text[i]) {
			return i
		}
	}
	return limit
}

type batched struct {
	next     ner.Tagger
	maxBytes int
}

// Batched wraps t so texts longer than maxBytes are tagged piece by piece.
// Offsets in the merged result refer to the original text.
func Batched(t ner.Tagger, maxBytes int) ner.Tagger {
	if maxBytes <= 0 {
		return t
	}
	return &batched{next: t, maxBytes: maxBytes}
}

func (b *batched) Tag(ctx context.Context, text string) (ner.Result, error) {
	if len(text) <= b.maxBytes {
		return b.next.Tag(ctx, text)
	}

	var merged ner.Result
	for i, p := range Split(text, b.maxBytes) {
		res, err := b.next.Tag(ctx, p.Text)
		if err != nil {
			return ner.Result{}, fmt.Errorf("tag piece %d at byte %d: %w", i, p.Offset, err)
		}
		for _, s := range res.Sentences {
			s.Start += p.Offset
			s.End += p.Offset
			merged.Sentences = append(merged.Sentences, s)
		}
		for _, sp := range res.Spans {
			sp.Start += p.Offset
			sp.End += p.Offset
			sp.SentStart += p.Offset
			sp.SentEnd += p.Offset
			merged.Spans = append(merged.Spans, sp)
		}
	}
	return merged, nil
}
