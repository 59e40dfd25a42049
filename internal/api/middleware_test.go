package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func TestRequestLoggerIncludesRouteIDs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Get("/api/quiz/{jobID}/status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/api/documents/{docID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/quiz/job-7/status", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/documents/doc-3", nil))

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "quiz api request", lines[0]["msg"])
	assert.Equal(t, "job-7", lines[0]["job_id"])
	assert.Equal(t, "/api/quiz/{jobID}/status", lines[0]["route"])
	assert.EqualValues(t, 2, lines[0]["bytes"])
	assert.NotEmpty(t, lines[0]["request_id"])
	assert.NotContains(t, lines[0], "doc_id")

	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.Equal(t, "doc-3", lines[1]["doc_id"])
	assert.EqualValues(t, http.StatusInternalServerError, lines[1]["status"])
}

func TestAuthMiddlewareLogsRejections(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	h := AuthMiddleware("secret", log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		code   int
		errMsg string
	}{
		{"missing", "", http.StatusUnauthorized, "missing bearer api key"},
		{"empty token", "Bearer ", http.StatusUnauthorized, "missing bearer api key"},
		{"wrong key", "Bearer nope", http.StatusUnauthorized, "invalid api key"},
		{"valid", "Bearer secret", http.StatusNoContent, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf.Reset()
			req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.code, rec.Code)
			if tc.errMsg == "" {
				assert.Zero(t, buf.Len())
				return
			}
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.errMsg, body["error"])
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			lines := logLines(t, &buf)
			require.Len(t, lines, 1)
			assert.Equal(t, "WARN", lines[0]["level"])
			assert.Equal(t, "/api/documents", lines[0]["path"])
		})
	}
}
