package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docquiz/internal/doctree"
)

// Parser extracts per-page raw lines from document bytes.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Document, error)
}

// Options tunes extractor behavior.
type Options struct {
	// PDFFallbackPdftotext retries failed PDF extraction with the pdftotext binary.
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// ParseBytes runs the parser matching filename over data. Any failure,
// including an unsupported extension, is reported as an ExtractionFailure.
func ParseBytes(data []byte, filename string, opts Options) (*doctree.Document, error) {
	p, err := ForFile(filename, opts)
	if err != nil {
		return nil, &ExtractionFailure{Filename: filename, Err: err}
	}
	doc, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return nil, asFailure(filename, err)
	}
	return doc, nil
}

// Open reads and parses the document at path.
func Open(path string, opts Options) (*doctree.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ExtractionFailure{Filename: filepath.Base(path), Err: err}
	}
	return ParseBytes(data, filepath.Base(path), opts)
}

func trimExt(filename string, exts ...string) string {
	for _, ext := range exts {
		if strings.HasSuffix(strings.ToLower(filename), ext) {
			return filename[:len(filename)-len(ext)]
		}
	}
	return filename
}
