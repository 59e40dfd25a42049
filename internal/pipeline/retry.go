package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/docquiz/internal/ner"
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *ner.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3

type retryTagger struct {
	next    ner.Tagger
	log     *slog.Logger
	backoff func(attempt int) time.Duration
}

// WithRetry retries transient tagger failures up to MaxRetries times.
func WithRetry(t ner.Tagger, log *slog.Logger) ner.Tagger {
	return &retryTagger{next: t, log: log, backoff: Backoff}
}

func (r *retryTagger) Tag(ctx context.Context, text string) (ner.Result, error) {
	var res ner.Result
	var lastErr error
	for attempt := range MaxRetries {
		res, lastErr = r.next.Tag(ctx, text)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		if attempt == MaxRetries-1 {
			break
		}
		r.log.Warn("retryable tagger error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(r.backoff(attempt)):
		case <-ctx.Done():
			return ner.Result{}, ctx.Err()
		}
	}
	return res, lastErr
}
