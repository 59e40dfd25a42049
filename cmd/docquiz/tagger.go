package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docquiz/internal/chunker"
	"github.com/dgallion1/docquiz/internal/config"
	"github.com/dgallion1/docquiz/internal/ner"
	"github.com/dgallion1/docquiz/internal/pipeline"
)

// newTagger builds the configured tagger. Long units are split into
// pieces, each piece is retried on transient failures and, when stats is
// non-nil, every call's latency is recorded. The returned func releases it.
func newTagger(cfg config.Config, log *slog.Logger, stats *ner.Stats) (ner.Tagger, func() error, error) {
	var (
		base    ner.Tagger
		closeFn func() error
	)
	switch cfg.Tagger {
	case "http":
		t := ner.NewHTTPTagger(cfg.TaggerURL, cfg.TaggerModel)
		base, closeFn = t, t.Close
	case "python":
		t := ner.NewPythonTagger(log, ner.PythonConfig{
			Python:    cfg.TaggerPython,
			Model:     cfg.TaggerModel,
			ScriptDir: cfg.TaggerScriptDir,
		})
		if err := t.Start(); err != nil {
			t.Close()
			return nil, nil, fmt.Errorf("start python tagger: %w", err)
		}
		base, closeFn = t, t.Close
	default:
		return nil, nil, fmt.Errorf("unknown tagger %q", cfg.Tagger)
	}
	tagger := pipeline.WithRetry(ner.Instrument(base, stats), log)
	return chunker.Batched(tagger, cfg.TaggerMaxBytes), closeFn, nil
}

var taggerCmd = &cobra.Command{
	Use:   "tagger",
	Short: "Inspect the entity tagger",
}

var taggerRequirementsCmd = &cobra.Command{
	Use:   "requirements",
	Short: "Print the pip requirements of the embedded spaCy script",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), ner.Requirements())
	},
}

var taggerCheckCmd = &cobra.Command{
	Use:   "check [text]",
	Short: "Tag a sample sentence and print the spans",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.ValidateTagger(); err != nil {
			return err
		}
		log := cliLogger(cfg)

		tagger, closeTagger, err := newTagger(cfg, log, nil)
		if err != nil {
			return err
		}
		defer closeTagger()

		text := "Marie Curie moved to Paris in 1891 and worked at the University of Paris."
		if len(args) == 1 {
			text = args[0]
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()
		res, err := tagger.Tag(ctx, text)
		if err != nil {
			return fmt.Errorf("tag sample: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d sentences, %d spans\n", len(res.Sentences), len(res.Spans))
		for _, sp := range res.Spans {
			fmt.Fprintf(out, "%-10s %q [%d,%d)\n", sp.Label, sp.Text, sp.Start, sp.End)
		}
		return nil
	},
}

func init() {
	taggerCmd.AddCommand(taggerRequirementsCmd, taggerCheckCmd)
	rootCmd.AddCommand(taggerCmd)
}
