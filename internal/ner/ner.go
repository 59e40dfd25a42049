// Package ner defines the entity tagger capability and its adapters. The
// statistical model itself lives outside this module; callers see only
// spans, labels and sentence boundaries.
package ner

import (
	"context"
	"fmt"
)

// Span is one tagged entity. Offsets are UTF-8 byte offsets into the text
// passed to Tag; End is exclusive.
type Span struct {
	Text      string `json:"text"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Label     string `json:"label"`
	Sentence  string `json:"sentence"`
	SentStart int    `json:"sent_start"`
	SentEnd   int    `json:"sent_end"`
}

// Sentence is one sentence boundary reported by the tagger.
type Sentence struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Result is the tagger output for one text.
type Result struct {
	Spans     []Span     `json:"spans"`
	Sentences []Sentence `json:"sentences"`
}

// Tagger labels entity spans and segments sentences. Segmentation must be
// deterministic and consistent with the returned spans.
type Tagger interface {
	Tag(ctx context.Context, text string) (Result, error)
}

// TaggerFunc adapts a function to the Tagger interface.
type TaggerFunc func(ctx context.Context, text string) (Result, error)

func (f TaggerFunc) Tag(ctx context.Context, text string) (Result, error) {
	return f(ctx, text)
}

// Validate checks that every offset in r lies inside text and that each
// span sits within its sentence.
func (r Result) Validate(text string) error {
	n := len(text)
	for i, s := range r.Sentences {
		if s.Start < 0 || s.End > n || s.Start > s.End {
			return fmt.Errorf("sentence %d: offsets [%d,%d) outside text of %d bytes", i, s.Start, s.End, n)
		}
	}
	for i, sp := range r.Spans {
		if sp.Start < 0 || sp.End > n || sp.Start > sp.End {
			return fmt.Errorf("span %d: offsets [%d,%d) outside text of %d bytes", i, sp.Start, sp.End, n)
		}
		if sp.SentStart > sp.Start || sp.SentEnd < sp.End || sp.SentStart < 0 || sp.SentEnd > n {
			return fmt.Errorf("span %d %q: not inside its sentence [%d,%d)", i, sp.Text, sp.SentStart, sp.SentEnd)
		}
	}
	return nil
}
