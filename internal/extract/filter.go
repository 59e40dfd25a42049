package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Reason says why a tagged span was dropped.
type Reason string

const (
	Accepted            Reason = ""
	RejectCategory      Reason = "category"
	RejectCharset       Reason = "charset"
	RejectBlacklist     Reason = "blacklist"
	RejectContext       Reason = "context"
	RejectNotInSentence Reason = "not_in_sentence"
)

// extraChars are the non-alphanumeric characters an entity may contain.
// Anything else is usually a bullet glyph or layout debris.
const extraChars = ".:,?/(){}[]_+=-*\\`\"'#@$! "

// ValidCharset reports whether s holds only letters, digits and extraChars.
func ValidCharset(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		if !strings.ContainsRune(extraChars, r) {
			return false
		}
	}
	return true
}

// Check applies the entity filters in order and returns the first
// failing reason, or Accepted. text and sentence are expected to be
// trimmed and whitespace-collapsed.
func (c Config) Check(text string, cat Category, sentence string) Reason {
	switch {
	case !cat.Allowed():
		return RejectCategory
	case text == "" || !ValidCharset(text):
		return RejectCharset
	case c.blacklisted(text):
		return RejectBlacklist
	case utf8.RuneCountInString(sentence) <= utf8.RuneCountInString(text)+c.MinContextMargin:
		return RejectContext
	case !strings.Contains(sentence, text):
		return RejectNotInSentence
	}
	return Accepted
}

func (c Config) blacklisted(text string) bool {
	lower := strings.ToLower(text)
	for _, b := range c.Blacklist {
		if strings.ToLower(b) == lower {
			return true
		}
	}
	return false
}

// collapseSpace trims s and folds internal whitespace runs to one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
