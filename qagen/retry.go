package qagen

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const (
	maxGenerationRetries = 3
	initialBackoff       = 1 * time.Second
	maxBackoff           = 60 * time.Second
	backoffBase          = 2.0
)

// errorClass categorizes an LLM call failure so the retry policy and logs
// can report why a Q&A generation attempt failed.
type errorClass int

const (
	classUnknown errorClass = iota
	classRateLimit
	classConnection
	classAPI
)

func classify(err error) errorClass {
	if err == nil {
		return classUnknown
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return classRateLimit
	case strings.Contains(msg, "request to") && strings.Contains(msg, "failed"):
		return classConnection
	case strings.Contains(msg, "llm api error"):
		return classAPI
	default:
		return classUnknown
	}
}

func (c errorClass) String() string {
	switch c {
	case classRateLimit:
		return "rate_limit"
	case classConnection:
		return "connection"
	case classAPI:
		return "api"
	default:
		return "unknown"
	}
}

// withRetry calls fn up to maxGenerationRetries times with exponential
// backoff (1s, 2s, 4s, ... capped at 60s), logging the error class on
// each failed attempt.
func withRetry(ctx context.Context, operation string, fn func() error) error {
	backoff := initialBackoff
	var lastErr error

	for attempt := 1; attempt <= maxGenerationRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		class := classify(err)
		slog.Warn("qagen: operation failed",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", maxGenerationRetries,
			"error_class", class.String(),
			"error", err,
		)

		if attempt == maxGenerationRetries {
			break
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = time.Duration(float64(backoff) * backoffBase)
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	return errors.New(operation + ": " + strconv.Itoa(maxGenerationRetries) + " attempts exhausted: " + lastErr.Error())
}
