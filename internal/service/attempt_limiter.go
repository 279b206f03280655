package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/vapor-share-api/pkg/errors"
)

type attemptCounter interface {
	Enabled() bool
	Count(ctx context.Context, clientKey string) (int64, error)
	Increment(ctx context.Context, clientKey string, window time.Duration) (int64, error)
}

// AttemptLimiter throttles clients that keep presenting unknown access codes. Counter
// errors never block a request.
type AttemptLimiter struct {
	counter     attemptCounter
	maxFailures int64
	window      time.Duration
	logger      *zap.Logger
}

// NewAttemptLimiter constructs an AttemptLimiter. A non-positive maxFailures disables it.
func NewAttemptLimiter(counter attemptCounter, maxFailures int, window time.Duration, logger *zap.Logger) *AttemptLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &AttemptLimiter{counter: counter, maxFailures: int64(maxFailures), window: window, logger: logger}
}

func (l *AttemptLimiter) enabled() bool {
	return l != nil && l.counter != nil && l.counter.Enabled() && l.maxFailures > 0
}

// Allow returns ErrTooManyAttempts once the client has exhausted its failures.
func (l *AttemptLimiter) Allow(ctx context.Context, clientKey string) error {
	if !l.enabled() {
		return nil
	}
	n, err := l.counter.Count(ctx, clientKey)
	if err != nil {
		l.logger.Warn("attempt counter unavailable", zap.Error(err))
		return nil
	}
	if n >= l.maxFailures {
		return appErrors.ErrTooManyAttempts
	}
	return nil
}

// RecordFailure counts one failed lookup for the client.
func (l *AttemptLimiter) RecordFailure(ctx context.Context, clientKey string) {
	if !l.enabled() {
		return
	}
	if _, err := l.counter.Increment(ctx, clientKey, l.window); err != nil {
		l.logger.Warn("attempt counter unavailable", zap.Error(err))
	}
}
