package ner

import _ "embed"

//go:embed scripts/spacy_tagger.py
var embeddedPythonScript string

//go:embed scripts/requirements.txt
var embeddedRequirements string

// Requirements returns the pip requirements of the embedded tagger script.
func Requirements() string { return embeddedRequirements }
