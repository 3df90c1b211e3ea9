package llm

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/flowforge/internal/metrics"
	"github.com/flowforge/internal/retry"
)

// ResilientClient wraps a Client with a per-call timeout, retries and metrics.
type ResilientClient struct {
	client      Client
	retryConfig retry.Config
	timeout     time.Duration
	logger      zerolog.Logger
}

// NewResilientClient wraps client. A zero timeout disables the per-call deadline.
func NewResilientClient(client Client, config retry.Config, timeout time.Duration) *ResilientClient {
	return &ResilientClient{
		client:      client,
		retryConfig: config,
		timeout:     timeout,
		logger:      log.With().Str("component", "llm").Logger(),
	}
}

// Complete runs the wrapped client under the retry policy. The last error
// is returned unchanged so callers can inspect UpstreamError.
func (rc *ResilientClient) Complete(ctx context.Context, req Request) (string, error) {
	if rc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rc.timeout)
		defer cancel()
	}

	logger := rc.logger.With().Str("operation", req.Operation).Str("model", req.Model).Logger()
	start := time.Now()

	var out string
	result := retry.Do(ctx, rc.retryConfig, logger, func(ctx context.Context) error {
		resp, err := rc.client.Complete(ctx, req)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})

	elapsed := time.Since(start)
	metrics.RecordLLMRequest(req.Operation, req.Model, statusLabel(result.LastError, result.Success), elapsed.Seconds())

	if !result.Success {
		err := result.LastError
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Error().Dur("timeout", rc.timeout).Dur("elapsed", elapsed).Msg("LLM request timed out")
		} else {
			logger.Error().Err(err).Int("attempts", result.Attempts).Msg("LLM request failed")
		}
		return "", err
	}

	logger.Debug().Int("attempts", result.Attempts).Dur("elapsed", elapsed).Int("response_len", len(out)).Msg("LLM request completed")
	return out, nil
}

func statusLabel(err error, ok bool) string {
	if ok {
		return "success"
	}
	var ue *UpstreamError
	switch {
	case errors.As(err, &ue):
		return "upstream_error"
	case errors.Is(err, ErrEmptyResponse):
		return "empty"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
