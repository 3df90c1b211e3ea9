package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config configures retries with exponential backoff.
type Config struct {
	MaxRetries int           `koanf:"max_retries"` // extra attempts after the first; 0 disables retries
	BaseDelay  time.Duration `koanf:"base_delay"`
	MaxDelay   time.Duration `koanf:"max_delay"`
	Multiplier float64       `koanf:"multiplier"`
	Jitter     bool          `koanf:"jitter"` // up to +/-10% random jitter

	// Retryable decides whether an error is worth another attempt.
	// Defaults to IsRetryableError.
	Retryable func(error) bool `koanf:"-"`
}

// Result describes how an operation ended.
type Result struct {
	Attempts      int
	TotalDuration time.Duration
	LastError     error
	Success       bool
	RetryReasons  []string
}

// DefaultConfig returns general purpose defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// LLMConfig returns defaults for chat-completion calls. Completions are
// slow and billed, so a single attempt is the default.
func LLMConfig() Config {
	return Config{
		MaxRetries: 0,
		BaseDelay:  2 * time.Second,
		MaxDelay:   60 * time.Second,
		Multiplier: 2.5,
		Jitter:     true,
	}
}

// Do runs op until it succeeds, returns a non-retryable error, runs out of
// attempts or ctx is done. Attempts are logged to logger at debug level and
// failures at warn level.
func Do(ctx context.Context, cfg Config, logger zerolog.Logger, op func(ctx context.Context) error) Result {
	start := time.Now()
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsRetryableError
	}
	result := Result{RetryReasons: make([]string, 0)}

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result.Attempts = attempt + 1
		logger.Debug().Int("attempt", attempt+1).Int("max_attempts", cfg.MaxRetries+1).Msg("Starting attempt")

		err := op(ctx)
		if err == nil {
			result.Success = true
			result.TotalDuration = time.Since(start)
			if attempt > 0 {
				logger.Info().Int("retries", attempt).Dur("duration", result.TotalDuration).Msg("Operation succeeded after retries")
			}
			return result
		}

		result.LastError = err
		result.RetryReasons = append(result.RetryReasons, err.Error())

		if attempt >= cfg.MaxRetries || !retryable(err) {
			result.TotalDuration = time.Since(start)
			if cfg.MaxRetries > 0 {
				logger.Warn().Err(err).Int("attempts", result.Attempts).Dur("duration", result.TotalDuration).Msg("Operation failed")
			}
			return result
		}
		if ctx.Err() != nil {
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(start)
			return result
		}

		delay := calculateDelay(cfg, attempt)
		logger.Warn().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("Attempt failed, backing off")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(start)
			logger.Debug().Err(ctx.Err()).Msg("Cancelled during backoff")
			return result
		case <-timer.C:
		}
	}

	result.TotalDuration = time.Since(start)
	return result
}

// calculateDelay returns baseDelay * multiplier^attempt, capped at MaxDelay.
func calculateDelay(cfg Config, attempt int) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		jitterRange := delay * 0.1
		delay += (rand.Float64() - 0.5) * 2 * jitterRange
		if delay < 0 {
			delay = float64(cfg.BaseDelay)
		}
	}
	return time.Duration(delay)
}

// StatusCoder is implemented by errors carrying an upstream HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// IsRetryableError reports whether err looks transient: throttling, upstream
// 5xx gateways or network trouble. Cancellation by the caller is not.
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		switch sc.HTTPStatus() {
		case 408, 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"service unavailable",
		"too many requests",
		"rate limit",
		"no such host",
		"network unreachable",
		"broken pipe",
		"context deadline exceeded",
		"eof",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
