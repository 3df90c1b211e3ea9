package generator

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/flowforge/internal/llm"
	"github.com/flowforge/internal/prompts"
)

// GuideRequest asks for setup instructions for an existing workflow.
type GuideRequest struct {
	WorkflowJSON             string `json:"n8nWorkflowJson"`
	UserPrompt               string `json:"userNaturalLanguagePrompt,omitempty"`
	AIExtractedTrigger       string `json:"aiExtractedTrigger,omitempty"`
	AIExtractedProcess       string `json:"aiExtractedProcess,omitempty"`
	AIExtractedAction        string `json:"aiExtractedAction,omitempty"`
	SelectedTriggerTool      string `json:"selectedTriggerTool,omitempty"`
	SelectedProcessLogicTool string `json:"selectedProcessLogicTool,omitempty"`
	SelectedActionTool       string `json:"selectedActionTool,omitempty"`
	Model                    string `json:"selectedLlmModelForGuide"`
}

// Check validates the request.
func (r GuideRequest) Check(models func(string) bool) error {
	if issues := checkModel("selectedLlmModelForGuide", r.Model, models); len(issues) > 0 {
		return &ValidationError{Message: "Invalid request body for guide generation.", Issues: issues}
	}
	return nil
}

// Guide produces markdown setup instructions for a workflow. A missing
// workflow is sent as "{}" and a missing user prompt as "".
func (s *Service) Guide(ctx context.Context, req GuideRequest) (string, error) {
	if err := req.Check(s.allowedModel); err != nil {
		return "", err
	}
	if err := s.ensureClient(); err != nil {
		return "", err
	}

	tpl, err := s.activePrompt(prompts.GenerationGuide)
	if err != nil {
		return "", err
	}
	log.Debug().Int("version", tpl.Version).Str("model", req.Model).Msg("Using guide prompt")

	workflow := req.WorkflowJSON
	if strings.TrimSpace(workflow) == "" {
		workflow = "{}"
	}
	values := map[string]string{
		prompts.VarNaturalLanguage: req.UserPrompt,
		prompts.VarWorkflowJSON:    workflow,
	}
	setIfPresent(values, prompts.VarExtractedTrigger, req.AIExtractedTrigger)
	setIfPresent(values, prompts.VarExtractedProcess, req.AIExtractedProcess)
	setIfPresent(values, prompts.VarExtractedAction, req.AIExtractedAction)
	setIfPresent(values, prompts.VarSelectedTrigger, req.SelectedTriggerTool)
	setIfPresent(values, prompts.VarSelectedProcessLogic, req.SelectedProcessLogicTool)
	setIfPresent(values, prompts.VarSelectedAction, req.SelectedActionTool)

	filled := prompts.FillPrompt(prompts.GenerationGuide, tpl.Content, values)

	out, err := s.complete(ctx, llm.Request{
		Operation: "guide",
		Model:     req.Model,
		Prompt:    filled,
	})
	if err != nil {
		return "", err
	}

	guide := strings.TrimSpace(out)
	if guide == "" {
		return "", llm.ErrEmptyResponse
	}
	return guide, nil
}
