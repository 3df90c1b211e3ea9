package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func fastConfig(maxRetries int) Config {
	return Config{
		MaxRetries: maxRetries,
		BaseDelay:  10 * time.Millisecond,
		MaxDelay:   100 * time.Millisecond,
		Multiplier: 2.0,
		Jitter:     false,
		Retryable:  func(error) bool { return true },
	}
}

type statusErr int

func (s statusErr) Error() string   { return fmt.Sprintf("upstream status %d", int(s)) }
func (s statusErr) HTTPStatus() int { return int(s) }

func TestLLMConfig_SingleAttempt(t *testing.T) {
	config := LLMConfig()
	if config.MaxRetries != 0 {
		t.Errorf("Expected MaxRetries=0, got %d", config.MaxRetries)
	}
	if config.BaseDelay != 2*time.Second {
		t.Errorf("Expected BaseDelay=2s, got %v", config.BaseDelay)
	}

	calls := 0
	result := Do(context.Background(), config, zerolog.Nop(), func(context.Context) error {
		calls++
		return errors.New("timeout")
	})
	if calls != 1 || result.Attempts != 1 {
		t.Errorf("Expected a single attempt, got calls=%d attempts=%d", calls, result.Attempts)
	}
}

func TestDo_Success(t *testing.T) {
	result := Do(context.Background(), fastConfig(2), zerolog.Nop(), func(context.Context) error {
		return nil
	})

	if !result.Success {
		t.Error("Expected success=true")
	}
	if result.Attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", result.Attempts)
	}
	if result.LastError != nil {
		t.Errorf("Expected no error, got %v", result.LastError)
	}
	if len(result.RetryReasons) != 0 {
		t.Errorf("Expected no retry reasons, got %d", len(result.RetryReasons))
	}
}

func TestDo_EventualSuccess(t *testing.T) {
	attempts := 0
	result := Do(context.Background(), fastConfig(3), zerolog.Nop(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary failure")
		}
		return nil
	})

	if !result.Success {
		t.Error("Expected success=true")
	}
	if result.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", result.Attempts)
	}
	if len(result.RetryReasons) != 2 {
		t.Errorf("Expected 2 retry reasons, got %d", len(result.RetryReasons))
	}
	if result.TotalDuration == 0 {
		t.Error("Expected non-zero total duration")
	}
}

func TestDo_AllAttemptsFail(t *testing.T) {
	expectedError := errors.New("persistent failure")
	result := Do(context.Background(), fastConfig(2), zerolog.Nop(), func(context.Context) error {
		return expectedError
	})

	if result.Success {
		t.Error("Expected success=false")
	}
	if result.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", result.Attempts)
	}
	if result.LastError != expectedError {
		t.Errorf("Expected last error to be %v, got %v", expectedError, result.LastError)
	}
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	cfg := fastConfig(5)
	cfg.Retryable = nil

	attempts := 0
	result := Do(context.Background(), cfg, zerolog.Nop(), func(context.Context) error {
		attempts++
		return statusErr(401)
	})

	if attempts != 1 {
		t.Errorf("Expected 1 attempt for a 401, got %d", attempts)
	}
	if result.Success {
		t.Error("Expected success=false")
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	cfg := fastConfig(5)
	cfg.BaseDelay = 100 * time.Millisecond
	cfg.MaxDelay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result := Do(ctx, cfg, zerolog.Nop(), func(context.Context) error {
		return errors.New("always fails")
	})

	if result.Success {
		t.Error("Expected success=false due to context cancellation")
	}
	if !errors.Is(result.LastError, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", result.LastError)
	}
	if result.Attempts > 2 {
		t.Errorf("Expected few attempts due to quick timeout, got %d", result.Attempts)
	}
}

func TestCalculateDelay(t *testing.T) {
	config := Config{
		BaseDelay:  1 * time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
	}

	if d := calculateDelay(config, 0); d != 1*time.Second {
		t.Errorf("Expected delay0=1s, got %v", d)
	}
	if d := calculateDelay(config, 1); d != 2*time.Second {
		t.Errorf("Expected delay1=2s, got %v", d)
	}
	if d := calculateDelay(config, 2); d != 4*time.Second {
		t.Errorf("Expected delay2=4s, got %v", d)
	}
	if d := calculateDelay(config, 10); d != 10*time.Second {
		t.Errorf("Expected delay10=10s (capped), got %v", d)
	}
}

func TestCalculateDelay_WithJitter(t *testing.T) {
	config := Config{
		BaseDelay:  1 * time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}

	expected := 2 * time.Second
	tolerance := 200 * time.Millisecond
	for i := 0; i < 5; i++ {
		d := calculateDelay(config, 1)
		if diff := d - expected; diff > tolerance || diff < -tolerance {
			t.Errorf("delay %v too far from expected %v", d, expected)
		}
	}
}

func TestIsRetryableError(t *testing.T) {
	retryable := []error{
		errors.New("connection refused"),
		errors.New("connection timeout"),
		errors.New("temporary failure"),
		errors.New("context deadline exceeded"),
		fmt.Errorf("wrapped: %w", statusErr(429)),
		statusErr(503),
	}
	for _, err := range retryable {
		if !IsRetryableError(err) {
			t.Errorf("Expected %v to be retryable", err)
		}
	}

	nonRetryable := []error{
		nil,
		errors.New("invalid input"),
		errors.New("permission denied"),
		statusErr(400),
		statusErr(401),
		statusErr(404),
		context.Canceled,
	}
	for _, err := range nonRetryable {
		if IsRetryableError(err) {
			t.Errorf("Expected %v to NOT be retryable", err)
		}
	}
}
