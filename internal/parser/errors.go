package parser

import (
	"errors"
	"fmt"
)

// ExtractionFailure reports that a document could not be read. Page is 0
// when the failure is not tied to a single page.
type ExtractionFailure struct {
	Filename string
	Page     int
	Err      error
}

func (e *ExtractionFailure) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("extract %s page %d: %v", e.Filename, e.Page, e.Err)
	}
	return fmt.Sprintf("extract %s: %v", e.Filename, e.Err)
}

func (e *ExtractionFailure) Unwrap() error { return e.Err }

func asFailure(filename string, err error) error {
	var ef *ExtractionFailure
	if errors.As(err, &ef) {
		if ef.Filename == "" {
			ef.Filename = filename
		}
		return ef
	}
	return &ExtractionFailure{Filename: filename, Err: err}
}
