package processor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/application"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/config"
)

// RetryClient retries read-only processor lookups. Confirmation is a GET, so
// repeating it has no side effects.
type RetryClient struct {
	inner      application.ProcessorClient
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryClient(inner application.ProcessorClient, cfg config.ProcessorConfig) *RetryClient {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RetryClient{
		inner:      inner,
		baseDelay:  cfg.RetryBaseDelay,
		maxRetries: maxRetries,
	}
}

func (r *RetryClient) GetPayment(ctx context.Context, paymentID string) (*application.ProcessorPayment, error) {
	return retry(r, ctx, func(ctx context.Context) (*application.ProcessorPayment, error) {
		return r.inner.GetPayment(ctx, paymentID)
	})
}

func retry[T any](r *RetryClient, ctx context.Context, operation func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < r.maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, errors.Join(ctx.Err(), lastErr)
			case <-time.After(r.backoff(attempt)):
			}
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	if procErr, ok := application.IsProcessorError(err); ok {
		return procErr.IsRetryable()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	// Transport errors and deadlines.
	return true
}

// Backoff calculation with exponential delay and jitter
func (r *RetryClient) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)
	if r.baseDelay <= 0 {
		return 0
	}
	jitter := time.Duration(rand.Int63n(int64(r.baseDelay)))
	return base + jitter
}
