package artifact

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docquiz/internal/extract"
	"github.com/dgallion1/docquiz/internal/quiz"
)

// Delimiter separates records in the question artifact.
const Delimiter = "----------------------------"

const (
	entityPrefix   = "Entity: "
	labelPrefix    = "Label: "
	sentencePrefix = "Sentence: "
)

// WriteReconstructed writes the normalized document text.
func WriteReconstructed(w io.Writer, text string) error {
	if _, err := io.WriteString(w, text); err != nil {
		return err
	}
	if text != "" && !strings.HasSuffix(text, "\n") {
		_, err := io.WriteString(w, "\n")
		return err
	}
	return nil
}

// WriteEntities writes one Entity/Label/Sentence record per mention, in
// pool order.
func WriteEntities(w io.Writer, pool extract.Pool) error {
	bw := bufio.NewWriter(w)
	for _, m := range pool {
		fmt.Fprintf(bw, "%s%s\n%s%s\n%s%s\n\n", entityPrefix, m.Text, labelPrefix, m.Category, sentencePrefix, m.Sentence)
	}
	return bw.Flush()
}

// ReadEntities parses the output of WriteEntities. Source unit indexes
// are not part of the format and come back as zero.
func ReadEntities(r io.Reader) (extract.Pool, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var pool extract.Pool
	var cur extract.EntityMention
	field := 0 // 0 expects Entity, 1 Label, 2 Sentence.
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		switch field {
		case 0:
			if line == "" {
				continue
			}
			v, ok := strings.CutPrefix(line, entityPrefix)
			if !ok {
				return nil, fmt.Errorf("line %d: expected %q record, got %q", lineNo, strings.TrimSpace(entityPrefix), line)
			}
			cur = extract.EntityMention{Text: v}
		case 1:
			v, ok := strings.CutPrefix(line, labelPrefix)
			if !ok {
				return nil, fmt.Errorf("line %d: expected label, got %q", lineNo, line)
			}
			cur.Category = extract.Category(v)
		case 2:
			v, ok := strings.CutPrefix(line, sentencePrefix)
			if !ok {
				return nil, fmt.Errorf("line %d: expected sentence, got %q", lineNo, line)
			}
			cur.Sentence = v
			pool = append(pool, cur)
		}
		field = (field + 1) % 3
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read entities: %w", err)
	}
	if field != 0 {
		return nil, fmt.Errorf("line %d: truncated entity record", lineNo)
	}
	return pool, nil
}

// WriteQuestions writes each question as a numbered prompt, lettered
// options and the answer, followed by Delimiter.
func WriteQuestions(w io.Writer, set quiz.Set) error {
	bw := bufio.NewWriter(w)
	for i, q := range set.Questions {
		fmt.Fprintf(bw, "%d. %s\n", i+1, q.Prompt)
		for j, o := range q.Options {
			fmt.Fprintf(bw, "%s. %s\n", quiz.Letter(j), o.Text)
		}
		fmt.Fprintf(bw, "Answer: %s. %s\n", q.AnswerLetter(), q.CorrectAnswer)
		fmt.Fprintln(bw, Delimiter)
	}
	return bw.Flush()
}
