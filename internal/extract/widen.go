package extract

import (
	"regexp"
	"strings"
)

// widenEnd extends an entity occupying sentence[start:end] over a
// parenthetical that belongs to it: either the entity itself leaves a "("
// open, or the text right after it (spaces allowed) opens one. The new
// end is just past the matching ")". Without a match end is returned.
func widenEnd(sentence string, start, end int) int {
	if start < 0 || end > len(sentence) || start > end {
		return end
	}
	depth := 0
	for i := start; i < end; i++ {
		switch sentence[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		}
	}

	i := end
	if depth == 0 {
		for i < len(sentence) && sentence[i] == ' ' {
			i++
		}
		if i >= len(sentence) || sentence[i] != '(' {
			return end
		}
	}

	for ; i < len(sentence); i++ {
		switch sentence[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return end
}

// Widen returns entity extended over a trailing parenthetical found in
// sentence at entity's first occurrence. It is the string form of the
// offset-based widening used during extraction.
func Widen(entity, sentence string) string {
	start := strings.Index(sentence, entity)
	if start < 0 {
		return entity
	}
	return sentence[start:widenEnd(sentence, start, start+len(entity))]
}

// yearRange matches "1642–1945" and "1914 - 1918".
var yearRange = regexp.MustCompile(`\b\d{4}\s*[–-]\s*\d{4}\b`)

// YearRange is a year-range expression located in a text unit. Offsets are
// byte offsets.
type YearRange struct {
	Text       string
	Start, End int
}

// FindYearRanges returns every year range in text, in order.
func FindYearRanges(text string) []YearRange {
	locs := yearRange.FindAllStringIndex(text, -1)
	out := make([]YearRange, 0, len(locs))
	for _, l := range locs {
		out = append(out, YearRange{Text: text[l[0]:l[1]], Start: l[0], End: l[1]})
	}
	return out
}
