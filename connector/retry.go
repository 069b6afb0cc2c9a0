package connector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// retryConnect calls connectFn until it succeeds, making at most
// MaxRetries+1 attempts. The delay starts at BaseDelay, grows by Backoff
// and is capped at MaxDelay.
func retryConnect(ctx context.Context, opts RetryConfig, logger *zap.Logger, connectFn func(context.Context) (Connection, error)) (Connection, error) {
	delay := opts.BaseDelay
	if delay <= 0 {
		delay = time.Second
	}
	backoff := opts.Backoff
	if backoff < 1 {
		backoff = 2
	}

	var err error
	for attempt := 0; ; attempt++ {
		var conn Connection
		conn, err = connectFn(ctx)
		if err == nil {
			return conn, nil
		}
		if attempt >= opts.MaxRetries {
			break
		}

		logger.Warn("connection attempt failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * backoff)
		if opts.MaxDelay > 0 && delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}
	}
	return nil, fmt.Errorf("failed to connect after %d retries: %w", opts.MaxRetries, err)
}
