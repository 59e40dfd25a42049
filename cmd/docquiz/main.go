// Package main is the entry point for the docquiz CLI.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docquiz/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the docquiz CLI.
var rootCmd = &cobra.Command{
	Use:   "docquiz",
	Short: "Turn documents into multiple-choice quizzes",
	Long: `docquiz reads a document (PDF, DOCX, HTML, Markdown or plain text),
repairs its layout into clean sentences, tags named entities and builds
multiple-choice questions whose wrong answers are other entities of the
same kind from the same document.

Use generate for a one-off run that writes artifacts to disk, or serve to
run the HTTP API with a job queue and a SQLite result store.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./docquiz.yaml or ~/.config/docquiz/docquiz.yaml)")
}

// loadConfig reads configuration, honoring the --config flag.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	return config.Load(cfgFile)
}

// cliLogger logs as text to stderr so stdout stays clean for results.
func cliLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
