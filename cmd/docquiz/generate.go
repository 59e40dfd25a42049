package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docquiz/internal/artifact"
	"github.com/dgallion1/docquiz/internal/config"
	"github.com/dgallion1/docquiz/internal/parser"
	"github.com/dgallion1/docquiz/internal/pipeline"
)

// Artifact file names written by generate.
const (
	reconstructedFile = "reconstructed.txt"
	entitiesFile      = "entities.txt"
	questionsBase     = "questions"
)

var generateCmd = &cobra.Command{
	Use:   "generate <document>",
	Short: "Generate a quiz from one document",
	Long: `Generate parses the document, reconstructs its sentences, tags entities
and assembles multiple-choice questions. Three artifacts are written to the
output directory: the reconstructed text, the entity-context records and the
questions in the chosen format.

The same document, seed and tagger always produce the same quiz.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringP("out", "o", ".", "directory for the artifacts")
	generateCmd.Flags().Uint64("seed", 0, "random seed for distractor choice and option order (default: random)")
	generateCmd.Flags().StringP("format", "f", "text", "question format: text, json, yaml or pdf")
	generateCmd.Flags().String("title", "", "override the document title")
	generateCmd.Flags().String("tagger", "", "entity tagger: python or http (default from config)")
	generateCmd.Flags().Bool("paragraph-breaks", false, "treat blank lines as paragraph breaks")
	generateCmd.Flags().Bool("disjoint", false, "never reuse an answered entity as a distractor")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyGenerateFlags(cmd, &cfg)
	if err := cfg.ValidateTagger(); err != nil {
		return err
	}

	format, err := artifact.ParseFormat(mustString(cmd, "format"))
	if err != nil {
		return err
	}
	seed, _ := cmd.Flags().GetUint64("seed")
	if !cmd.Flags().Changed("seed") {
		seed = rand.Uint64()
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return &parser.ExtractionFailure{Filename: filepath.Base(path), Err: err}
	}

	log := cliLogger(cfg)
	rc, err := pipeline.RunnerConfigFrom(cfg)
	if err != nil {
		return err
	}
	tagger, closeTagger, err := newTagger(cfg, log, nil)
	if err != nil {
		return err
	}
	defer closeTagger()

	runner := pipeline.NewRunner(tagger, log, rc)
	in := pipeline.Input{Filename: filepath.Base(path), Data: data, Title: mustString(cmd, "title")}
	return generate(cmd.Context(), cmd.OutOrStdout(), runner, in, seed, mustString(cmd, "out"), format)
}

// applyGenerateFlags lets explicit flags win over file and environment config.
func applyGenerateFlags(cmd *cobra.Command, cfg *config.Config) {
	if t := mustString(cmd, "tagger"); t != "" {
		cfg.Tagger = t
	}
	if cmd.Flags().Changed("paragraph-breaks") {
		if on, _ := cmd.Flags().GetBool("paragraph-breaks"); on {
			cfg.BlankLinePolicy = "paragraph"
		} else {
			cfg.BlankLinePolicy = "discard"
		}
	}
	if cmd.Flags().Changed("disjoint") {
		cfg.DisjointDistractors, _ = cmd.Flags().GetBool("disjoint")
	}
}

// generate runs one document and writes its artifacts. A document that
// cannot be read produces no artifacts at all.
func generate(ctx context.Context, out io.Writer, runner *pipeline.Runner, in pipeline.Input, seed uint64, outDir string, format artifact.Format) error {
	res, err := runner.Run(ctx, in, seed)
	if err != nil {
		var failure *parser.ExtractionFailure
		if errors.As(err, &failure) {
			return err
		}
		return fmt.Errorf("generate quiz: %w", err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{reconstructedFile, func(w io.Writer) error { return artifact.WriteReconstructed(w, res.Reconstructed) }},
		{entitiesFile, func(w io.Writer) error { return artifact.WriteEntities(w, res.Pool) }},
		{questionsBase + format.Extension(), func(w io.Writer) error { return artifact.WriteSet(w, format, res.Title, res.Set) }},
	}
	for _, f := range files {
		if err := writeFile(filepath.Join(outDir, f.name), f.write); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "%s: %d pages, %d units, %d warnings\n", in.Filename, res.Pages, len(res.Units), len(res.Warnings))
	fmt.Fprintf(out, "entities: %d accepted, %d tagged, %d units failed\n",
		res.ExtractReport.Accepted, res.ExtractReport.Tagged, res.ExtractReport.UnitErrors)
	fmt.Fprintf(out, "questions: %d (%d duplicates, %d without enough distractors)\n",
		res.QuizReport.Emitted, res.QuizReport.Duplicates, res.QuizReport.Insufficient)
	fmt.Fprintf(out, "seed: %d\nwrote %s\n", seed, outDir)
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func mustString(cmd *cobra.Command, name string) string {
	s, _ := cmd.Flags().GetString(name)
	return s
}
