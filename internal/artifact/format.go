// Package artifact writes pipeline outputs: the reconstructed text, the
// entity-context records and the question set in several formats.
package artifact

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dgallion1/docquiz/internal/quiz"
)

// Format selects how a question set is rendered.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	YAML Format = "yaml"
	PDF  Format = "pdf"
)

// ParseFormat accepts a format name or a common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "pdf":
		return PDF, nil
	}
	return "", fmt.Errorf("unsupported format %q: use text, json, yaml or pdf", s)
}

// Extension is the file extension for f, with the dot.
func (f Format) Extension() string {
	switch f {
	case JSON:
		return ".json"
	case YAML:
		return ".yaml"
	case PDF:
		return ".pdf"
	}
	return ".txt"
}

// ContentType is the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case JSON:
		return "application/json"
	case YAML:
		return "application/yaml"
	case PDF:
		return "application/pdf"
	}
	return "text/plain; charset=utf-8"
}

// WriteSet renders set in format f. title is used by the PDF sheet.
func WriteSet(w io.Writer, f Format, title string, set quiz.Set) error {
	switch f {
	case Text:
		return WriteQuestions(w, set)
	case JSON:
		return WriteJSON(w, set)
	case YAML:
		return WriteYAML(w, set)
	case PDF:
		return WritePDF(w, Sheet{Title: title, Generated: time.Now(), Set: set})
	}
	return fmt.Errorf("unsupported format %q", f)
}
