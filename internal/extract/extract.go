package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/docquiz/internal/doctree"
	"github.com/dgallion1/docquiz/internal/ner"
)

// Config controls entity filtering.
type Config struct {
	Blacklist        []string // Lower-cased entity texts that are never kept.
	MinContextMargin int      // A sentence must be longer than its entity by more than this many runes.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Blacklist:        []string{"vs"},
		MinContextMargin: 5,
	}
}

// Report summarizes one extraction run.
type Report struct {
	Units      int            `json:"units"`
	UnitErrors int            `json:"unit_errors"`
	Tagged     int            `json:"tagged"`
	Accepted   int            `json:"accepted"`
	Rejected   map[Reason]int `json:"rejected"`
	YearRanges int            `json:"year_ranges"`
	Unattached int            `json:"unattached_year_ranges"`
	Covered    int            `json:"covered_year_ranges"`
}

// Extractor turns text units into an entity pool using a tagger.
type Extractor struct {
	tagger ner.Tagger
	log    *slog.Logger
	cfg    Config
}

func New(tagger ner.Tagger, log *slog.Logger, cfg Config) *Extractor {
	return &Extractor{tagger: tagger, log: log.With("component", "extract"), cfg: cfg}
}

// Extract tags every unit in order. A unit the tagger fails on is logged
// and skipped; only a canceled context stops the run.
func (e *Extractor) Extract(ctx context.Context, units []doctree.TextUnit) (Pool, Report, error) {
	var pool Pool
	rep := Report{Rejected: make(map[Reason]int)}

	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return pool, rep, err
		}
		rep.Units++

		ranges := FindYearRanges(u.Text)

		res, err := e.tagger.Tag(ctx, u.Text)
		if err != nil {
			if ctx.Err() != nil {
				return pool, rep, fmt.Errorf("tag unit %d: %w", u.Index, ctx.Err())
			}
			rep.UnitErrors++
			e.log.Warn("tagger failed, skipping unit", "unit", u.Index, "page", u.Page, "error", err)
			continue
		}

		before := len(pool)
		var dates []dateSpan
		pool, dates = e.appendSpans(pool, &rep, u, res.Spans)
		pool = e.appendYearRanges(pool, &rep, u, ranges, res.Sentences, dates)

		e.log.Debug("unit tagged",
			"unit", u.Index,
			"spans", len(res.Spans),
			"year_ranges", len(ranges),
			"accepted", len(pool)-before,
		)
	}

	e.log.Info("extraction complete",
		"units", rep.Units,
		"mentions", len(pool),
		"rejected", rejectedTotal(rep.Rejected),
		"unit_errors", rep.UnitErrors,
	)
	return pool, rep, nil
}

// dateSpan is an accepted DATE mention. Start is -1 when the tagger's
// offsets were not usable.
type dateSpan struct {
	start, end int
	text       string
	sentence   string
}

// covers reports whether the year range r, found at entity in sentence,
// was already tagged as part of this date.
func (d dateSpan) covers(r YearRange, entity, sentence string) bool {
	if d.start >= 0 && d.start <= r.Start && r.End <= d.end {
		return true
	}
	return d.sentence == sentence && strings.Contains(d.text, entity)
}

func (e *Extractor) appendSpans(pool Pool, rep *Report, u doctree.TextUnit, spans []ner.Span) (Pool, []dateSpan) {
	var dates []dateSpan
	for _, sp := range spans {
		rep.Tagged++

		entity, sentence := spanContext(u.Text, sp)
		entity = collapseSpace(entity)
		sentence = collapseSpace(sentence)

		cat := Category(sp.Label)
		if reason := e.cfg.Check(entity, cat, sentence); reason != Accepted {
			rep.Rejected[reason]++
			continue
		}
		rep.Accepted++
		pool = append(pool, EntityMention{
			Text:            entity,
			Category:        cat,
			Sentence:        sentence,
			SourceUnitIndex: u.Index,
		})
		if cat == Date {
			d := dateSpan{start: -1, end: -1, text: entity, sentence: sentence}
			if offsetsUsable(u.Text, sp) {
				d.start, d.end = sp.Start, sp.End
			}
			dates = append(dates, d)
		}
	}
	return pool, dates
}

func offsetsUsable(text string, sp ner.Span) bool {
	return sp.SentStart >= 0 && sp.SentEnd <= len(text) && sp.SentStart <= sp.Start &&
		sp.Start <= sp.End && sp.End <= sp.SentEnd
}

// spanContext returns the (possibly widened) entity text and its sentence.
// Offsets are trusted when they are consistent; otherwise the span's own
// strings are used.
func spanContext(text string, sp ner.Span) (string, string) {
	if !offsetsUsable(text, sp) {
		return Widen(sp.Text, sp.Sentence), sp.Sentence
	}
	sentence := text[sp.SentStart:sp.SentEnd]
	start := sp.Start - sp.SentStart
	end := widenEnd(sentence, start, sp.End-sp.SentStart)
	return sentence[start:end], sentence
}

// appendYearRanges adds year ranges the tagger did not already report as
// part of an accepted DATE span.
func (e *Extractor) appendYearRanges(pool Pool, rep *Report, u doctree.TextUnit, ranges []YearRange, sents []ner.Sentence, dates []dateSpan) Pool {
ranges:
	for _, m := range ranges {
		s, ok := sentenceAt(sents, m.Start, len(u.Text))
		if !ok {
			rep.Unattached++
			continue
		}
		entity := collapseSpace(m.Text)
		sentence := collapseSpace(u.Text[s.Start:s.End])
		if !strings.Contains(sentence, entity) {
			rep.Unattached++
			continue
		}
		for _, d := range dates {
			if d.covers(m, entity, sentence) {
				rep.Covered++
				continue ranges
			}
		}
		rep.YearRanges++
		pool = append(pool, EntityMention{
			Text:            entity,
			Category:        Date,
			Sentence:        sentence,
			SourceUnitIndex: u.Index,
		})
	}
	return pool
}

// sentenceAt returns the first sentence whose span contains offset.
func sentenceAt(sents []ner.Sentence, offset, textLen int) (ner.Sentence, bool) {
	for _, s := range sents {
		if s.Start <= offset && offset < s.End && s.End <= textLen {
			return s, true
		}
	}
	return ner.Sentence{}, false
}

func rejectedTotal(m map[Reason]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
