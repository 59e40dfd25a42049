package extract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docquiz/internal/doctree"
	"github.com/dgallion1/docquiz/internal/ner"
)

type fakeEnt struct {
	text  string
	label string
}

// fakeTagger tags the first occurrence of each entity and splits
// sentences at ". ".
type fakeTagger struct {
	ents []fakeEnt
	fail map[string]error
}

func (f *fakeTagger) Tag(ctx context.Context, text string) (ner.Result, error) {
	if err := f.fail[text]; err != nil {
		return ner.Result{}, err
	}
	sents := splitSentences(text)
	res := ner.Result{Sentences: sents}
	for _, e := range f.ents {
		i := strings.Index(text, e.text)
		if i < 0 {
			continue
		}
		for _, s := range sents {
			if s.Start <= i && i < s.End {
				res.Spans = append(res.Spans, ner.Span{
					Text: e.text, Start: i, End: i + len(e.text), Label: e.label,
					Sentence: s.Text, SentStart: s.Start, SentEnd: s.End,
				})
				break
			}
		}
	}
	return res, nil
}

func splitSentences(text string) []ner.Sentence {
	var out []ner.Sentence
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '.' && (i+1 == len(text) || text[i+1] == ' ') {
			out = append(out, ner.Sentence{Text: text[start : i+1], Start: start, End: i + 1})
			start = i + 2
		}
	}
	if start < len(text) {
		out = append(out, ner.Sentence{Text: text[start:], Start: start, End: len(text)})
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func units(texts ...string) []doctree.TextUnit {
	out := make([]doctree.TextUnit, len(texts))
	for i, t := range texts {
		out[i] = doctree.TextUnit{Index: i, Page: i + 1, Text: t}
	}
	return out
}

func run(t *testing.T, tagger ner.Tagger, texts ...string) (Pool, Report) {
	t.Helper()
	pool, rep, err := New(tagger, testLogger(), DefaultConfig()).Extract(context.Background(), units(texts...))
	require.NoError(t, err)
	return pool, rep
}

func TestExtract_WidensOverFollowingParenthetical(t *testing.T) {
	sentence := "IBM (International Business Machines) was founded in 1911."
	pool, _ := run(t, &fakeTagger{ents: []fakeEnt{{"IBM", "ORG"}}}, sentence)

	require.Len(t, pool, 1)
	assert.Equal(t, "IBM (International Business Machines)", pool[0].Text)
	assert.Equal(t, sentence, pool[0].Sentence)
	assert.Equal(t, Org, pool[0].Category)
}

func TestExtract_WidensUnmatchedOpenParen(t *testing.T) {
	text := "International Business Machines (IBM (Armonk)) is a large company."
	pool, _ := run(t, &fakeTagger{ents: []fakeEnt{{"International Business Machines (IBM", "ORG"}}}, text)

	require.Len(t, pool, 1)
	assert.Equal(t, "International Business Machines (IBM (Armonk))", pool[0].Text)
}

func TestExtract_NoMatchingCloseKeepsSpan(t *testing.T) {
	pool, _ := run(t, &fakeTagger{ents: []fakeEnt{{"IBM", "ORG"}}}, "IBM (never closed was founded in 1911.")
	require.Len(t, pool, 1)
	assert.Equal(t, "IBM", pool[0].Text)
}

func TestExtract_Filters(t *testing.T) {
	text := "The French people voted. • France joined the union. Smith vs Jones was heard in court. Paris. Berlin is a large city."
	tagger := &fakeTagger{ents: []fakeEnt{
		{"French", "NORP"},
		{"• France", "GPE"},
		{"vs", "PERSON"},
		{"Paris", "GPE"},
		{"Berlin", "GPE"},
	}}
	pool, rep := run(t, tagger, text)

	require.Len(t, pool, 1)
	assert.Equal(t, "Berlin", pool[0].Text)
	assert.Equal(t, map[Reason]int{
		RejectCategory:  1,
		RejectCharset:   1,
		RejectBlacklist: 1,
		RejectContext:   1,
	}, rep.Rejected)
	assert.Equal(t, 5, rep.Tagged)
	assert.Equal(t, 1, rep.Accepted)
}

func TestExtract_ContextMarginBoundary(t *testing.T) {
	// "Rome abc." is exactly 5 runes longer than "Rome": rejected.
	// "Rome abcd." is 6 longer: accepted.
	pool, rep := run(t, &fakeTagger{ents: []fakeEnt{{"Rome", "GPE"}}}, "Rome abc.", "Rome abcd.")
	require.Len(t, pool, 1)
	assert.Equal(t, 1, pool[0].SourceUnitIndex)
	assert.Equal(t, 1, rep.Rejected[RejectContext])
}

func TestExtract_CollapsesWhitespace(t *testing.T) {
	pool, _ := run(t, &fakeTagger{ents: []fakeEnt{{"New\n York", "GPE"}}}, "New\n York  is   big and busy.")
	require.Len(t, pool, 1)
	assert.Equal(t, "New York", pool[0].Text)
	assert.Equal(t, "New York is big and busy.", pool[0].Sentence)
}

func TestExtract_YearRangesAfterSpans(t *testing.T) {
	text := "The war lasted 1939–1945 in Europe. Peace came in 1946 - 1947 to Rome."
	pool, rep := run(t, &fakeTagger{ents: []fakeEnt{{"Europe", "LOC"}, {"Rome", "GPE"}}}, text)

	assert.Equal(t, Pool{
		{Text: "Europe", Category: Loc, Sentence: "The war lasted 1939–1945 in Europe."},
		{Text: "Rome", Category: GPE, Sentence: "Peace came in 1946 - 1947 to Rome."},
		{Text: "1939–1945", Category: Date, Sentence: "The war lasted 1939–1945 in Europe."},
		{Text: "1946 - 1947", Category: Date, Sentence: "Peace came in 1946 - 1947 to Rome."},
	}, pool)
	assert.Equal(t, 2, rep.YearRanges)
	assert.Zero(t, rep.Unattached)
	assert.Zero(t, rep.Covered)
}

func TestExtract_YearRangeAlreadyTaggedAsDate(t *testing.T) {
	text := "The war lasted 1939–1945 in Europe. Peace came in the years 1946-1947 to Rome."
	tagger := &fakeTagger{ents: []fakeEnt{{"Europe", "LOC"}, {"Rome", "GPE"}, {"the years 1946-1947", "DATE"}}}
	pool, rep := run(t, tagger, text)

	assert.Equal(t, Pool{
		{Text: "Europe", Category: Loc, Sentence: "The war lasted 1939–1945 in Europe."},
		{Text: "Rome", Category: GPE, Sentence: "Peace came in the years 1946-1947 to Rome."},
		{Text: "the years 1946-1947", Category: Date, Sentence: "Peace came in the years 1946-1947 to Rome."},
		{Text: "1939–1945", Category: Date, Sentence: "The war lasted 1939–1945 in Europe."},
	}, pool)
	assert.Equal(t, 3, rep.Accepted)
	assert.Equal(t, 1, rep.YearRanges)
	assert.Equal(t, 1, rep.Covered)
}

func TestExtract_YearRangeCoveredWithoutOffsets(t *testing.T) {
	text := "Henry reigned 1509-1547 in England."
	tagger := ner.TaggerFunc(func(ctx context.Context, text string) (ner.Result, error) {
		return ner.Result{
			Spans: []ner.Span{{
				Text: "1509-1547", Start: 99, End: 1, Label: "DATE",
				Sentence: text, SentStart: 0, SentEnd: len(text),
			}},
			Sentences: []ner.Sentence{{Text: text, Start: 0, End: len(text)}},
		}, nil
	})
	pool, rep := run(t, tagger, text)

	require.Len(t, pool, 1)
	assert.Equal(t, "1509-1547", pool[0].Text)
	assert.Equal(t, Date, pool[0].Category)
	assert.Zero(t, rep.YearRanges)
	assert.Equal(t, 1, rep.Covered)
}

func TestExtract_UnattachedYearRange(t *testing.T) {
	tagger := ner.TaggerFunc(func(ctx context.Context, text string) (ner.Result, error) {
		return ner.Result{}, nil
	})
	pool, rep := run(t, tagger, "Reign 1509-1547 without sentences.")
	assert.Empty(t, pool)
	assert.Equal(t, 1, rep.Unattached)
}

func TestExtract_TaggerErrorSkipsUnit(t *testing.T) {
	tagger := &fakeTagger{
		ents: []fakeEnt{{"Rome", "GPE"}},
		fail: map[string]error{"Rome is broken here.": errors.New("model crashed")},
	}
	pool, rep := run(t, tagger, "Rome is broken here.", "Rome is fine and old.")

	require.Len(t, pool, 1)
	assert.Equal(t, 1, pool[0].SourceUnitIndex)
	assert.Equal(t, 2, rep.Units)
	assert.Equal(t, 1, rep.UnitErrors)
}

func TestExtract_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ex := New(&fakeTagger{}, testLogger(), DefaultConfig())
	_, _, err := ex.Extract(ctx, units("Rome is old and grand."))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtract_InconsistentOffsetsFallBackToStrings(t *testing.T) {
	tagger := ner.TaggerFunc(func(ctx context.Context, text string) (ner.Result, error) {
		return ner.Result{Spans: []ner.Span{{
			Text: "IBM", Start: 50, End: 40, Label: "ORG",
			Sentence: "IBM (Big Blue) makes computers.", SentStart: 0, SentEnd: 5,
		}}}, nil
	})
	pool, _ := run(t, tagger, "whatever")
	require.Len(t, pool, 1)
	assert.Equal(t, "IBM (Big Blue)", pool[0].Text)
}

func TestWiden(t *testing.T) {
	tests := []struct {
		entity, sentence, want string
	}{
		{"IBM", "IBM (International Business Machines) was founded in 1911.", "IBM (International Business Machines)"},
		{"IBM", "IBM was founded (in New York) in 1911.", "IBM"},
		{"Acme (US", "Acme (US (Delaware)) Inc. filed.", "Acme (US (Delaware))"},
		{"Acme", "Acme   (Holdings) Ltd.", "Acme   (Holdings)"},
		{"Acme", "no entity here", "Acme"},
		{"Acme", "Acme (unclosed", "Acme"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Widen(tt.entity, tt.sentence), "Widen(%q, %q)", tt.entity, tt.sentence)
	}
}

func TestFindYearRanges(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"From 1642–1945 and 1800-1850.", []string{"1642–1945", "1800-1850"}},
		{"Spaced 1914 - 1918 here.", []string{"1914 - 1918"}},
		{"Not 12345-6789 or 199-2000.", nil},
		{"Single 1920 year.", nil},
	}
	for _, tt := range tests {
		got := FindYearRanges(tt.text)
		var texts []string
		for _, r := range got {
			texts = append(texts, r.Text)
			assert.Equal(t, r.Text, tt.text[r.Start:r.End], "%q: offsets", tt.text)
		}
		assert.Equal(t, tt.want, texts, "%q", tt.text)
	}
}

func TestValidCharset(t *testing.T) {
	tests := map[string]bool{
		"Paris":          true,
		"O'Brien":        true,
		"AT&T":           false,
		"• France":       false,
		"Zürich":         true,
		"$5,000":         true,
		"C++ (language)": true,
		"1939–1945":      false,
	}
	for in, want := range tests {
		assert.Equal(t, want, ValidCharset(in), "ValidCharset(%q)", in)
	}
}

func TestPoolDistinctKeys(t *testing.T) {
	pool := Pool{
		{Text: "Paris", Category: GPE},
		{Text: "Paris", Category: GPE},
		{Text: "Paris", Category: Person},
		{Text: "Rome", Category: GPE},
	}
	assert.Equal(t, 3, pool.DistinctKeys())
}
