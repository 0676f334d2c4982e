// Package retry provides the bounded linear-backoff policy used for all
// external backend calls (Postgres, Sheets, Telegram delivery).
package retry

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultAttempts bounds how often an operation is tried in total.
	DefaultAttempts = 3
	// DefaultBaseDelay is multiplied by the attempt index between tries.
	DefaultBaseDelay = 250 * time.Millisecond
)

// Do runs op up to attempts times, sleeping attempt×baseDelay between tries.
// The final error is returned only after all attempts are exhausted. A
// cancelled context aborts the wait and returns the context error.
func Do(ctx context.Context, attempts int, baseDelay time.Duration, op func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if baseDelay < 0 {
		baseDelay = DefaultBaseDelay
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		wait := time.Duration(attempt) * baseDelay
		select {
		case <-ctx.Done():
			// Keep the attempt's error; it is the diagnostic, the
			// cancellation is just when we stopped.
			return fmt.Errorf("%w (last attempt: %w)", ctx.Err(), lastErr)
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
