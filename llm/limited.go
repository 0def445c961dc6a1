package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Limited paces calls to an inner Client and bounds each call with a timeout.
// It never retries; a failed call is returned as is.
type Limited struct {
	inner   Client
	limiter *rate.Limiter
	timeout time.Duration
	logger  *slog.Logger
}

type LimitOption func(*Limited)

// WithRateLimit allows requestsPerMinute calls with the given burst.
func WithRateLimit(requestsPerMinute int, burst int) LimitOption {
	return func(l *Limited) {
		if requestsPerMinute <= 0 {
			l.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
	}
}

func WithTimeout(timeout time.Duration) LimitOption {
	return func(l *Limited) {
		l.timeout = timeout
	}
}

func WithLogger(logger *slog.Logger) LimitOption {
	return func(l *Limited) {
		l.logger = logger
	}
}

func NewLimited(inner Client, opts ...LimitOption) *Limited {
	l := &Limited{
		inner:   inner,
		timeout: 2 * time.Minute,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "llm_client")
	return l
}

func (l *Limited) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := l.inner.Complete(ctx, prompt)
	duration := time.Since(start)
	if err != nil {
		l.logger.Warn("completion failed",
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return "", err
	}
	l.logger.Debug("completion done",
		"duration_ms", duration.Milliseconds(),
		"history_len", len(prompt.History),
		"response_length", len(out))
	return out, nil
}
