package middleware

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/llmkit-go/llmkit/llmkiterr"
)

// RetryConfig controls the exponential-backoff retry Layer.
//
// Grounded on the teacher's pkg/internal/retry/retry.go (Config/Do/
// calculateDelay), adapted from a standalone retry.Do helper into a Layer.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
	// ShouldRetry decides whether err is worth retrying. Defaults to
	// llmkiterr.RetryableKind applied to the error's Kind.
	ShouldRetry func(error) bool
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

func (c RetryConfig) shouldRetry(err error) bool {
	if c.ShouldRetry != nil {
		return c.ShouldRetry(err)
	}
	var e *llmkiterr.Error
	if errors.As(err, &e) {
		return llmkiterr.RetryableKind(e.Kind)
	}
	return true
}

func (c RetryConfig) delay(attempt int) time.Duration {
	d := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt-1))
	if d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	if c.Jitter {
		d += d * 0.25 * rand.Float64()
	}
	return time.Duration(d)
}

// Retry returns a Layer that retries a failing Service with exponential
// backoff, honoring context cancellation between attempts.
func Retry[Req, Res any](cfg RetryConfig) Layer[Req, Res] {
	if cfg.MaxRetries == 0 {
		cfg = DefaultRetryConfig()
	}
	return LayerFunc[Req, Res](func(next Service[Req, Res]) Service[Req, Res] {
		return ServiceFunc[Req, Res](func(ctx context.Context, req Req) (Res, error) {
			var lastErr error
			var zero Res
			for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
				if err := ctx.Err(); err != nil {
					return zero, llmkiterr.NewCancelled("retry aborted: %v", err)
				}
				res, err := next.Handle(ctx, req)
				if err == nil {
					return res, nil
				}
				lastErr = err
				if !cfg.shouldRetry(err) || attempt == cfg.MaxRetries {
					return zero, lastErr
				}
				timer := time.NewTimer(cfg.delay(attempt + 1))
				select {
				case <-ctx.Done():
					timer.Stop()
					return zero, llmkiterr.NewCancelled("retry aborted: %v", ctx.Err())
				case <-timer.C:
				}
			}
			return zero, lastErr
		})
	})
}
