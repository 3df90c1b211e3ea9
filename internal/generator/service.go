// Package generator turns natural-language automation requests into
// validated tool selections, n8n workflow JSON and setup guides.
package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/flowforge/internal/llm"
	"github.com/flowforge/internal/logging"
	"github.com/flowforge/internal/prompts"
)

// PromptSource yields the active version of a prompt type.
type PromptSource interface {
	Active(t prompts.PromptType) (*prompts.PromptVersion, error)
}

// Options configures a Service.
type Options struct {
	Models          []string // models callers may pick
	ValidationModel string
	TraceDir        string // per-call prompt/response traces, empty disables
}

// Service orchestrates prompt filling, LLM calls and output shaping.
type Service struct {
	prompts PromptSource
	client  llm.Client
	opts    Options
}

// New creates a Service. client may be nil when no API key is configured;
// every LLM-backed call then fails with ErrNotConfigured.
func New(source PromptSource, client llm.Client, opts Options) *Service {
	return &Service{prompts: source, client: client, opts: opts}
}

// Models returns the selectable model list.
func (s *Service) Models() []string {
	return append([]string(nil), s.opts.Models...)
}

func (s *Service) allowedModel(model string) bool {
	for _, m := range s.opts.Models {
		if m == model {
			return true
		}
	}
	return false
}

// activePrompt loads the active content of t or returns ErrPromptNotConfigured.
func (s *Service) activePrompt(t prompts.PromptType) (*prompts.PromptVersion, error) {
	v, err := s.prompts.Active(t)
	if err != nil {
		if errors.Is(err, prompts.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPromptNotConfigured, t)
		}
		return nil, fmt.Errorf("load %s prompt: %w", t, err)
	}
	if v == nil || v.Content == "" {
		return nil, fmt.Errorf("%w: %s has empty content", ErrPromptNotConfigured, t)
	}
	return v, nil
}

// complete sends req and mirrors the exchange into a trace file when enabled.
func (s *Service) complete(ctx context.Context, req llm.Request) (string, error) {
	trace, err := logging.StartGenerationLog(s.opts.TraceDir, req.Operation, uuid.NewString())
	if err != nil {
		log.Warn().Err(err).Str("operation", req.Operation).Msg("Generation trace disabled")
	}
	defer trace.Close()

	trace.LogRequest(req.Model, req.Prompt)
	out, err := s.client.Complete(ctx, req)
	if err != nil {
		trace.LogError("completion", err)
		return "", err
	}
	trace.LogResponse(out)
	return out, nil
}

func (s *Service) ensureClient() error {
	if s.client == nil {
		return ErrNotConfigured
	}
	return nil
}

// setIfPresent stores v under name unless v is empty, so Fill substitutes N/A.
func setIfPresent(values map[string]string, name, v string) {
	if v != "" {
		values[name] = v
	}
}
