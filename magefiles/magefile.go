//go:build mage

// Build tasks for docquiz. Run `mage -l` to list them.
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"

	"github.com/dgallion1/docquiz/internal/ner"
)

const (
	binDir  = "bin"
	venvDir = ".venv"
)

// Default target when mage runs without arguments.
var Default = Build

// Build compiles the docquiz binary into bin/.
func Build() error {
	mg.Deps(Vet)
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return sh.RunV("go", "build",
		"-ldflags", "-X main.version="+version,
		"-o", filepath.Join(binDir, "docquiz"),
		"./cmd/docquiz",
	)
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// TaggerEnv creates .venv with spaCy and the default English model.
// Point TAGGER_PYTHON at .venv/bin/python afterwards.
func TaggerEnv() error {
	if _, err := os.Stat(venvDir); os.IsNotExist(err) {
		if err := sh.RunV("python3", "-m", "venv", venvDir); err != nil {
			return err
		}
	}

	req, err := os.CreateTemp("", "docquiz-requirements-*.txt")
	if err != nil {
		return err
	}
	defer os.Remove(req.Name())
	if _, err := req.WriteString(ner.Requirements()); err != nil {
		req.Close()
		return err
	}
	if err := req.Close(); err != nil {
		return err
	}

	pip := filepath.Join(venvDir, "bin", "pip")
	if err := sh.RunV(pip, "install", "-r", req.Name()); err != nil {
		return err
	}
	model := os.Getenv("TAGGER_MODEL")
	if model == "" {
		model = "en_core_web_sm"
	}
	return sh.RunV(filepath.Join(venvDir, "bin", "python"), "-m", "spacy", "download", model)
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}
