package database

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrStorageUnavailable is surfaced after transient storage errors exhaust
// their retries. Business-rule errors are never retried.
var ErrStorageUnavailable = errors.New("storage unavailable")

const (
	retryAttempts  = 3
	retryBaseDelay = 100 * time.Millisecond
)

// WithRetry runs fn, retrying with exponential backoff when the error is a
// transient connection failure. Any other error is returned as-is on the
// first attempt.
func WithRetry(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= retryAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !isTransient(lastErr) {
			return lastErr
		}

		if attempt < retryAttempts {
			delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrStorageUnavailable, ctx.Err())
			}
		}
	}

	return fmt.Errorf("%w: %v", ErrStorageUnavailable, lastErr)
}

// isTransient classifies connection-level failures that are safe to retry.
func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}

	return pgconn.SafeToRetry(err)
}

// IsStorageUnavailable checks if error is an exhausted-retries storage error
func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}
