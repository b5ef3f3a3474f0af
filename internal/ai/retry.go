package ai

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"net"
	"net/http"
	"time"

	"resumerank/internal/config"
	apperrors "resumerank/internal/errors"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// RetryPolicy bounds how often a failed model call is repeated.
// The zero value makes exactly one attempt.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// NoRetry makes a single attempt
var NoRetry = RetryPolicy{MaxAttempts: 1}

// RetryPolicyFromConfig returns NoRetry unless retries are enabled
func RetryPolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	if !cfg.Enabled {
		return NoRetry
	}
	return RetryPolicy{
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
	}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// backoff returns the delay before the given retry (1-based) with up to 10% jitter
func (p RetryPolicy) backoff(retry int) time.Duration {
	base := p.InitialBackoff
	if base <= 0 {
		base = time.Second
	}
	maxBackoff := p.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}

	delay := base
	for i := 1; i < retry && delay < maxBackoff; i++ {
		delay *= 2
	}

	if jitterMax := int64(delay) / 10; jitterMax > 0 {
		if jitter, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			delay += time.Duration(jitter.Int64())
		}
	}
	return min(delay, maxBackoff)
}

// executeWithRetry runs fn until it succeeds, fails with a non-retryable error,
// runs out of attempts or ctx is done.
func executeWithRetry[T any](ctx context.Context, policy RetryPolicy, logger *apperrors.Logger, operation string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	attempts := policy.attempts()

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := policy.backoff(attempt - 1)
			logger.Warn("Retrying model call",
				"operation", operation,
				"attempt", attempt,
				"max_attempts", attempts,
				"backoff", delay,
				"error", lastErr.Error())

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info("Model call succeeded after retry",
					"operation", operation,
					"attempt", attempt)
			}
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !isRetryableError(err) {
			break
		}
	}

	return zero, lastErr
}

// isRetryableError reports whether err is transient: a network failure or
// an HTTP 429/500/502/503/504 from the model API.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return isRetryableStatus(apiErr.Code)
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return isRetryableStatus(gErr.Code)
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
