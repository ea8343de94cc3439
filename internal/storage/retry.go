package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RetryStrategy bounds how often a transiently failing file operation is retried
type RetryStrategy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// NewRetryStrategy creates a RetryStrategy. At least one attempt is always
// made and a negative backoff is treated as none.
func NewRetryStrategy(maxAttempts int, backoff time.Duration) *RetryStrategy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if backoff < 0 {
		backoff = 0
	}
	return &RetryStrategy{
		MaxAttempts: maxAttempts,
		Backoff:     backoff,
	}
}

// IsTemporaryError determines if a file operation error is worth retrying.
// Locks held by a browser still writing the download surface as
// permission or sharing errors.
func (s *RetryStrategy) IsTemporaryError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, fs.ErrPermission) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "used by another process") ||
		strings.Contains(errStr, "sharing violation") ||
		strings.Contains(errStr, "text file busy") ||
		strings.Contains(errStr, "resource busy")
}

// RenameWithRetry moves src to dst, replacing dst. Temporary failures are
// retried with a fixed backoff until attempts run out or ctx ends.
func RenameWithRetry(ctx context.Context, src, dst string, strategy *RetryStrategy, logger *zap.Logger) error {
	return retry(ctx, strategy, logger, "rename", func() error {
		return os.Rename(src, dst)
	})
}

func retry(ctx context.Context, strategy *RetryStrategy, logger *zap.Logger, op string, fn func() error) error {
	attempts := strategy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !strategy.IsTemporaryError(err) {
			return fmt.Errorf("%s failed: %w", op, err)
		}
		if attempt == attempts {
			break
		}

		logger.Info("File still in use, waiting",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err))

		timer := time.NewTimer(strategy.Backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s interrupted: %w", op, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, err)
}
