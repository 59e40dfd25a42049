package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docquiz/internal/config"
	"github.com/dgallion1/docquiz/internal/doctree"
	"github.com/dgallion1/docquiz/internal/extract"
	"github.com/dgallion1/docquiz/internal/ner"
	"github.com/dgallion1/docquiz/internal/normalize"
	"github.com/dgallion1/docquiz/internal/parser"
	"github.com/dgallion1/docquiz/internal/quiz"
)

// RunnerConfig bundles the per-stage settings.
type RunnerConfig struct {
	Parser    parser.Options
	Normalize normalize.Config
	Extract   extract.Config
	Quiz      []quiz.AssemblerOption
}

// DefaultRunnerConfig returns the default settings of every stage.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Normalize: normalize.DefaultConfig(),
		Extract:   extract.DefaultConfig(),
	}
}

// RunnerConfigFrom maps service configuration onto stage settings.
func RunnerConfigFrom(cfg config.Config) (RunnerConfig, error) {
	rc := DefaultRunnerConfig()
	policy, err := normalize.ParseBlankLinePolicy(cfg.BlankLinePolicy)
	if err != nil {
		return RunnerConfig{}, fmt.Errorf("blank line policy: %w", err)
	}
	rc.Normalize.BlankLines = policy
	rc.Normalize.RepairHyphenation = cfg.RepairHyphenation
	rc.Parser.PDFFallbackPdftotext = cfg.PDFFallbackPdftotext

	rc.Extract.Blacklist = append([]string(nil), cfg.EntityBlacklist...)
	if cfg.DisjointDistractors {
		rc.Quiz = append(rc.Quiz, quiz.WithDisjointDistractors())
	}
	return rc, nil
}

// Input is one document to turn into a quiz.
type Input struct {
	Filename string
	Data     []byte
	Title    string // Overrides the extracted title when set.
}

// Prepared is a parsed and normalized document, ready for tagging.
type Prepared struct {
	Title         string
	Pages         int
	Units         []doctree.TextUnit
	Reconstructed string
	Warnings      []normalize.Warning
	ContentHash   string // SHA-256 of the reconstructed text.
}

// Result is the complete output of one run.
type Result struct {
	Prepared
	Pool          extract.Pool
	ExtractReport extract.Report
	Set           quiz.Set
	QuizReport    quiz.Report
}

// Runner executes the stages for one document, strictly in sequence.
type Runner struct {
	cfg       RunnerConfig
	extractor *extract.Extractor
	log       *slog.Logger
}

func NewRunner(tagger ner.Tagger, log *slog.Logger, cfg RunnerConfig) *Runner {
	return &Runner{
		cfg:       cfg,
		extractor: extract.New(tagger, log, cfg.Extract),
		log:       log,
	}
}

// Prepare parses and normalizes a document. An unreadable document yields
// a *parser.ExtractionFailure.
func (r *Runner) Prepare(in Input) (*Prepared, error) {
	doc, err := parser.ParseBytes(in.Data, in.Filename, r.cfg.Parser)
	if err != nil {
		return nil, err
	}
	if in.Title != "" {
		doc.Title = in.Title
	}

	norm := normalize.Normalize(doc, r.cfg.Normalize)
	for _, w := range norm.Warnings {
		r.log.Warn("layout warning", "file", in.Filename, "page", w.Page, "line", w.Line, "warning", w.Message)
	}

	text := normalize.Reconstruct(norm.Units)
	return &Prepared{
		Title:         doc.Title,
		Pages:         len(doc.Pages),
		Units:         norm.Units,
		Reconstructed: text,
		Warnings:      norm.Warnings,
		ContentHash:   ContentHashHex([]byte(text)),
	}, nil
}

// Quiz tags a prepared document and assembles its questions.
func (r *Runner) Quiz(ctx context.Context, p *Prepared, seed uint64) (*Result, error) {
	pool, rep, err := r.extractor.Extract(ctx, p.Units)
	if err != nil {
		return nil, fmt.Errorf("extract entities: %w", err)
	}

	set, qrep := quiz.NewSeeded(seed, r.log, r.cfg.Quiz...).Assemble(pool)
	return &Result{
		Prepared:      *p,
		Pool:          pool,
		ExtractReport: rep,
		Set:           set,
		QuizReport:    qrep,
	}, nil
}

// Run is Prepare followed by Quiz. On failure the result is empty, never
// nil, so callers can always write artifacts from it.
func (r *Runner) Run(ctx context.Context, in Input, seed uint64) (*Result, error) {
	p, err := r.Prepare(in)
	if err != nil {
		return &Result{}, err
	}
	res, err := r.Quiz(ctx, p, seed)
	if err != nil {
		return &Result{}, err
	}
	return res, nil
}
