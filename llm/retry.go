package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bugeai-chat/utils"
)

// retryBackoff returns the wait before the given retry attempt: 1s, 2s, 4s...
var retryBackoff = func(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt-1)) * time.Second
}

// StreamChatWithRetry opens a completion stream, retrying retryable errors with exponential backoff
func StreamChatWithRetry(ctx context.Context, provider Provider, messages []Message, maxRetries int, logger *utils.Logger) (<-chan StreamResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := retryBackoff(attempt)
			logger.Info("Retrying in %v (attempt %d/%d)...", wait, attempt, maxRetries)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		stream, err := provider.StreamChat(ctx, messages)
		if err == nil {
			if attempt > 0 {
				logger.Info("Retry successful on attempt %d", attempt+1)
			}
			return stream, nil
		}

		lastErr = err
		logger.Warn("Stream chat attempt %d failed: %v", attempt+1, err)

		if !IsRetryableError(err) {
			break
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries+1, lastErr)
}

// IsRetryableError checks if an error should trigger a retry
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	retryableErrors := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"network",
		"dial tcp",
		"no such host",
		"connection timed out",
		"eof",
		"status code: 429",
		"status code: 502",
		"status code: 503",
	}

	for _, retryable := range retryableErrors {
		if strings.Contains(errStr, retryable) {
			return true
		}
	}

	return false
}
