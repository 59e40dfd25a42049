package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docquiz/internal/config"
	"github.com/dgallion1/docquiz/internal/ner"
	"github.com/dgallion1/docquiz/internal/pipeline"
	"github.com/dgallion1/docquiz/internal/quiz"
	"github.com/dgallion1/docquiz/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-key"

const capitals = "Paris is the capital of France.\n" +
	"\fRome is the capital of Italy.\n" +
	"\fBerlin is the capital of Germany.\n" +
	"\fMadrid is the capital of Spain.\n"

// cityTagger treats each text as one sentence and tags known cities as GPE.
var cityTagger = ner.TaggerFunc(func(ctx context.Context, text string) (ner.Result, error) {
	res := ner.Result{Sentences: []ner.Sentence{{Text: text, Start: 0, End: len(text)}}}
	for _, c := range []string{"Paris", "Rome", "Berlin", "Madrid"} {
		if i := strings.Index(text, c); i >= 0 {
			res.Spans = append(res.Spans, ner.Span{
				Text: c, Start: i, End: i + len(c), Label: "GPE",
				Sentence: text, SentStart: 0, SentEnd: len(text),
			})
		}
	}
	return res, nil
})

func newTestServer(t *testing.T, stats *ner.Stats) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.NewStore(filepath.Join(t.TempDir(), "docquiz.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.Config{
		APIKey:         testKey,
		Tagger:         "python",
		TaggerModel:    "en_core_web_sm",
		WorkerCount:    1,
		MaxQueueSize:   4,
		MaxUploadBytes: 1 << 20,
		JobTTL:         time.Hour,
		AllowedOrigins: []string{"*"},
	}
	var tagger ner.Tagger = cityTagger
	if stats != nil {
		tagger = ner.Instrument(tagger, stats)
	}
	runner := pipeline.NewRunner(tagger, log, pipeline.DefaultRunnerConfig())
	orch := pipeline.NewOrchestrator(cfg, runner, st, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	return NewServer(orch, stats, log, cfg)
}

func do(t *testing.T, s *Server, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func uploadForm(t *testing.T, filename, content string, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// submitAndWait uploads a document and polls until its job settles.
func submitAndWait(t *testing.T, s *Server, fields map[string]string) pipeline.JobSnapshot {
	t.Helper()
	body, ct := uploadForm(t, "capitals.txt", capitals, fields)
	rec := do(t, s, http.MethodPost, "/api/quiz", body, ct)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var accepted map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	pollURL, _ := accepted["poll_url"].(string)
	require.NotEmpty(t, pollURL)

	var snap pipeline.JobSnapshot
	require.Eventually(t, func() bool {
		rec := do(t, s, http.MethodGet, pollURL, nil, "")
		if rec.Code != http.StatusOK {
			return false
		}
		snap = pipeline.JobSnapshot{}
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			return false
		}
		switch snap.Status {
		case pipeline.StatusCompleted, pipeline.StatusFailed, pipeline.StatusPartial, pipeline.StatusDupSkipped:
			return true
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	return snap
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestQuizUploadLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	snap := submitAndWait(t, s, map[string]string{"seed": "11", "title": "Capitals"})
	require.Equal(t, pipeline.StatusCompleted, snap.Status, snap.Progress.Errors)
	assert.Equal(t, uint64(11), snap.Seed)
	assert.Equal(t, 4, snap.Progress.Questions)
	docID := snap.DocID

	rec := do(t, s, http.MethodGet, "/api/documents", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Documents []store.Document `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "Capitals", list.Documents[0].Title)

	rec = do(t, s, http.MethodGet, "/api/documents/"+docID+"/questions", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var set quiz.Set
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	require.Len(t, set.Questions, 4)
	for _, q := range set.Questions {
		assert.Len(t, q.Options, quiz.OptionCount)
		assert.Contains(t, q.Prompt, quiz.BlankMarker)
	}

	rec = do(t, s, http.MethodGet, "/api/documents/"+docID+"/questions?format=text", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), quiz.BlankMarker)

	rec = do(t, s, http.MethodGet, "/api/documents/"+docID+"/questions?format=pdf", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), docID+".pdf")

	rec = do(t, s, http.MethodGet, "/api/documents/"+docID+"/questions?format=docx", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/documents/"+docID+"/entities?format=text", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Paris")

	rec = do(t, s, http.MethodGet, "/api/documents/"+docID+"/text", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Paris is the capital of France.\n\nRome")

	rec = do(t, s, http.MethodDelete, "/api/documents/"+docID, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/documents/"+docID+"/questions", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, s, http.MethodDelete, "/api/documents/"+docID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuizUploadDuplicate(t *testing.T) {
	s := newTestServer(t, nil)

	first := submitAndWait(t, s, nil)
	require.Equal(t, pipeline.StatusCompleted, first.Status)

	dup := submitAndWait(t, s, nil)
	assert.Equal(t, pipeline.StatusDupSkipped, dup.Status)
	assert.Equal(t, first.DocID, dup.ExistingDocID)

	forced := submitAndWait(t, s, map[string]string{"force": "true"})
	assert.Equal(t, pipeline.StatusCompleted, forced.Status)
}

func TestQuizUploadRejectsBadInput(t *testing.T) {
	s := newTestServer(t, nil)

	body, ct := uploadForm(t, "slides.pptx", "x", nil)
	rec := do(t, s, http.MethodPost, "/api/quiz", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct = uploadForm(t, "capitals.txt", capitals, map[string]string{"seed": "-4"})
	rec = do(t, s, http.MethodPost, "/api/quiz", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/quiz/nope/status", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBatchQuiz(t *testing.T) {
	s := newTestServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range map[string]string{"a.txt": capitals, "b.exe": "x"} {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	rec := do(t, s, http.MethodPost, "/api/quiz/batch", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		Jobs []map[string]any `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Jobs, 2)
	accepted, rejected := 0, 0
	for _, j := range resp.Jobs {
		if _, ok := j["error"]; ok {
			rejected++
		} else {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, rejected)
}

func TestTaggerStats(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/api/stats/tagger", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	stats := ner.NewStats(time.Hour)
	s = newTestServer(t, stats)
	snap := submitAndWait(t, s, nil)
	require.Equal(t, pipeline.StatusCompleted, snap.Status)

	rec = do(t, s, http.MethodGet, "/api/stats/tagger", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Tagger string            `json:"tagger"`
		Stats  ner.StatsSnapshot `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "python", body.Tagger)
	assert.Equal(t, 4, body.Stats.Count)
}
