package embedding

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryCall runs op with exponential backoff inside the caller's context.
// Only transient failures (timeouts, connection errors, throttling) are
// retried; anything else is permanent and returns immediately so a bad
// request is never replayed.
func retryCall(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 15 * time.Second

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(wrapped, backoff.WithContext(b, ctx))
}

// isTransient reports whether an error looks worth retrying.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"timeout",
		"connection",
		"temporary",
		"unavailable",
		"throttl",
		"rate limit",
		"too many requests",
		"status 429",
		"status 500",
		"status 502",
		"status 503",
		"status 504",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
