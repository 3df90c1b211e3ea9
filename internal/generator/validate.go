package generator

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/flowforge/internal/llm"
	"github.com/flowforge/internal/prompts"
	"github.com/flowforge/internal/tools"
)

// ValidationResult is the outcome of checking a user request.
type ValidationResult struct {
	Valid                bool     `json:"valid"`
	ExtractedTriggerText *string  `json:"extractedTriggerText"`
	ExtractedProcessText *string  `json:"extractedProcessText"`
	ExtractedActionText  *string  `json:"extractedActionText"`
	Feedback             *string  `json:"feedback"`
	Suggestions          []string `json:"suggestions"`
	MatchedTriggerTool   string   `json:"matchedTriggerTool"`
	MatchedProcessTool   string   `json:"matchedProcessTool"`
	MatchedActionTool    string   `json:"matchedActionTool"`
}

// modelValidation is the JSON document the validation prompt asks for.
type modelValidation struct {
	Valid       *bool    `json:"valid"`
	Trigger     *string  `json:"trigger"`
	Process     *string  `json:"process"`
	Action      *string  `json:"action"`
	Feedback    *string  `json:"feedback"`
	Suggestions []string `json:"suggestions"`
}

// Validate asks the model whether userPrompt describes an automation with a
// trigger, process and action, then maps each part to a catalog tool.
func (s *Service) Validate(ctx context.Context, userPrompt string) (ValidationResult, error) {
	if strings.TrimSpace(userPrompt) == "" {
		return ValidationResult{}, &ValidationError{
			Message: "User prompt is required, must be a non-empty string.",
			Issues:  []FieldIssue{{Field: "userPrompt", Message: "required"}},
		}
	}
	if err := s.ensureClient(); err != nil {
		return ValidationResult{}, err
	}

	tpl, err := s.activePrompt(prompts.Validation)
	if err != nil {
		return ValidationResult{}, err
	}
	log.Debug().Int("version", tpl.Version).Msg("Using validation prompt")

	filled := prompts.FillPrompt(prompts.Validation, tpl.Content, map[string]string{
		prompts.VarUserPrompt: userPrompt,
	})

	raw, err := s.complete(ctx, llm.Request{
		Operation: "validate",
		Model:     s.opts.ValidationModel,
		Prompt:    filled,
		JSON:      true,
	})
	if err != nil {
		return ValidationResult{}, err
	}

	var parsed modelValidation
	if _, err := llm.DecodeJSON("validate", raw, &parsed); err != nil {
		log.Warn().Err(err).Str("raw", truncate(raw, 300)).Msg("Validation output could not be parsed")
		return ValidationResult{}, &MalformedOutputError{Raw: raw, Err: unwrapShape(err), Detail: err.Error()}
	}
	if parsed.Valid == nil {
		return ValidationResult{}, &MalformedOutputError{Raw: raw, Err: llm.ErrUnexpectedShape, Detail: "valid: required boolean"}
	}

	suggestions := parsed.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}

	return ValidationResult{
		Valid:                *parsed.Valid,
		ExtractedTriggerText: parsed.Trigger,
		ExtractedProcessText: parsed.Process,
		ExtractedActionText:  parsed.Action,
		Feedback:             parsed.Feedback,
		Suggestions:          suggestions,
		MatchedTriggerTool:   tools.Triggers().Match(deref(parsed.Trigger)),
		MatchedProcessTool:   tools.Processes().Match(deref(parsed.Process)),
		MatchedActionTool:    tools.Actions().Match(deref(parsed.Action)),
	}, nil
}

// unwrapShape reduces a DecodeJSON error to its sentinel.
func unwrapShape(err error) error {
	if errors.Is(err, llm.ErrUnexpectedShape) {
		return llm.ErrUnexpectedShape
	}
	return llm.ErrNotJSON
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
