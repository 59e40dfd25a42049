package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPTagger calls a remote NER service (for example a spaCy model behind
// a small web server) with POST {baseURL}/tag.
type HTTPTagger struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewHTTPTagger(baseURL, model string) *HTTPTagger {
	return &HTTPTagger{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type tagRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

type tagResponse struct {
	Result
	Error string `json:"error,omitempty"`
}

// Tag sends text to the service and validates the returned offsets.
func (c *HTTPTagger) Tag(ctx context.Context, text string) (Result, error) {
	body, err := json.Marshal(tagRequest{Text: text, Model: c.model})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tag", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("tagger service: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return Result{}, &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("tagger service status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var tr tagResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return Result{}, fmt.Errorf("decode response: %w (raw: %s)", err, truncate(string(respBody), 200))
	}
	if tr.Error != "" {
		return Result{}, fmt.Errorf("tagger error: %s", tr.Error)
	}
	if err := tr.Result.Validate(text); err != nil {
		return Result{}, fmt.Errorf("tagger response: %w", err)
	}
	return tr.Result, nil
}

// Close releases resources.
func (c *HTTPTagger) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
