package llm

import (
	"context"
	"errors"
	"log"
	"time"
)

const (
	// DefaultMaxTries is the number of calls RetryingClient makes before giving up
	DefaultMaxTries = 3
	// DefaultBaseDelay is the wait before the first retry; it doubles each time
	DefaultBaseDelay = time.Second
)

// RetryingClient wraps a Client and retries failed generations with exponential
// backoff. Context cancellation and deadline errors are returned immediately.
type RetryingClient struct {
	Client
	MaxTries  int
	BaseDelay time.Duration
}

// NewRetryingClient wraps c with the default retry policy
func NewRetryingClient(c Client) *RetryingClient {
	return &RetryingClient{Client: c, MaxTries: DefaultMaxTries, BaseDelay: DefaultBaseDelay}
}

// GenerateContent implements Client with retries
func (r *RetryingClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return r.do(ctx, func() (string, error) { return r.Client.GenerateContent(ctx, prompt, tier) })
}

// GenerateJSON implements Client with retries
func (r *RetryingClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return r.do(ctx, func() (string, error) { return r.Client.GenerateJSON(ctx, prompt, tier) })
}

func (r *RetryingClient) do(ctx context.Context, call func() (string, error)) (string, error) {
	tries := r.MaxTries
	if tries < 1 {
		tries = 1
	}
	delay := r.BaseDelay

	var lastErr error
	for attempt := 1; attempt <= tries; attempt++ {
		out, err := call()
		if err == nil {
			return out, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", err
		}
		if attempt == tries {
			break
		}

		log.Printf("[llm] attempt %d/%d failed: %v; retrying in %s", attempt, tries, err, delay)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return "", lastErr
}
