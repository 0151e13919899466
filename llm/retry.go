package llm

import (
	"context"
	"errors"
	"time"
)

const defaultRetryWait = time.Second

type retryClient struct {
	inner    Client
	attempts int
	wait     time.Duration
}

// WithRetry wraps a client with exponential-backoff retries on transient
// failures. Context cancellation and deadline expiry are not retried.
func WithRetry(inner Client, attempts int) Client {
	if attempts < 1 {
		attempts = 1
	}
	return &retryClient{inner: inner, attempts: attempts, wait: defaultRetryWait}
}

func (c *retryClient) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	wait := c.wait

	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}

		answer, err := c.inner.Complete(ctx, prompt)
		if err == nil {
			return answer, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		lastErr = err
	}

	return "", lastErr
}
