package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docquiz/internal/artifact"
	"github.com/dgallion1/docquiz/internal/quiz"
)

var reassembleCmd = &cobra.Command{
	Use:   "reassemble <entities.txt>",
	Short: "Build a new question set from an entity-context artifact",
	Long: `Reassemble reads the entities.txt written by generate and assembles a
fresh question set without running the tagger again. Use a different seed
to get different distractors and option order.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
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
		disjoint := cfg.DisjointDistractors
		if cmd.Flags().Changed("disjoint") {
			disjoint, _ = cmd.Flags().GetBool("disjoint")
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		title := mustString(cmd, "title")
		if title == "" {
			title = filepath.Base(filepath.Dir(args[0]))
		}

		var opts []quiz.AssemblerOption
		if disjoint {
			opts = append(opts, quiz.WithDisjointDistractors())
		}
		assembler := quiz.NewSeeded(seed, cliLogger(cfg), opts...)

		if path := mustString(cmd, "out"); path != "" {
			return writeFile(path, func(w io.Writer) error {
				return reassemble(f, w, assembler, format, title)
			})
		}
		return reassemble(f, cmd.OutOrStdout(), assembler, format, title)
	},
}

func init() {
	reassembleCmd.Flags().StringP("out", "o", "", "output file (default: stdout)")
	reassembleCmd.Flags().Uint64("seed", 0, "random seed (default: random)")
	reassembleCmd.Flags().StringP("format", "f", "text", "question format: text, json, yaml or pdf")
	reassembleCmd.Flags().String("title", "", "title for the PDF sheet")
	reassembleCmd.Flags().Bool("disjoint", false, "never reuse an answered entity as a distractor")

	rootCmd.AddCommand(reassembleCmd)
}

func reassemble(r io.Reader, w io.Writer, a *quiz.Assembler, format artifact.Format, title string) error {
	pool, err := artifact.ReadEntities(r)
	if err != nil {
		return fmt.Errorf("read entities: %w", err)
	}
	set, _ := a.Assemble(pool)
	return artifact.WriteSet(w, format, title, set)
}
