package ner

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInterpreter stands in for python: it ignores the script argument
// and speaks the same line protocol with a canned reply.
const fakeInterpreter = `#!/bin/sh
read cfg
echo '{"status":"READY","model":"fake"}'
while read line; do
  echo '{"spans":[{"text":"Rome","start":0,"end":4,"label":"GPE","sentence":"Rome is old.","sent_start":0,"sent_end":12}],"sentences":[{"text":"Rome is old.","start":0,"end":12}]}'
done
`

func writeFake(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script interpreter")
	}
	path := filepath.Join(t.TempDir(), "python")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func TestPythonTagger_LineProtocol(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tagger := NewPythonTagger(log, PythonConfig{
		Python:    writeFake(t, fakeInterpreter),
		ScriptDir: t.TempDir(),
	})
	defer tagger.Close()

	for i := 0; i < 2; i++ {
		res, err := tagger.Tag(context.Background(), "Rome is old.")
		require.NoError(t, err, "call %d", i)
		require.Len(t, res.Spans, 1, "call %d", i)
		assert.Equal(t, "Rome", res.Spans[0].Text)
	}

	script, err := os.ReadFile(tagger.script)
	require.NoError(t, err)
	assert.Equal(t, embeddedPythonScript, string(script), "written script matches embedded script")
}

func TestPythonTagger_NotReady(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tagger := NewPythonTagger(log, PythonConfig{
		Python:    writeFake(t, "#!/bin/sh\nread cfg\necho '{\"status\":\"ERROR\",\"error\":\"no model\"}'\n"),
		ScriptDir: t.TempDir(),
	})
	defer tagger.Close()

	assert.Error(t, tagger.Start())
}

func TestPythonTagger_CanceledContext(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tagger := NewPythonTagger(log, PythonConfig{Python: writeFake(t, fakeInterpreter), ScriptDir: t.TempDir()})
	defer tagger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tagger.Tag(ctx, "Rome is old.")
	assert.Equal(t, context.Canceled, err)
}
