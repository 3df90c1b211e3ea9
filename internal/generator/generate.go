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

// Separator splits the workflow JSON from the guide in a generation answer.
const Separator = "---JSON-GUIDE-SEPARATOR---"

// SystemMessage is sent ahead of the filled generation prompt.
const SystemMessage = "You are a helpful assistant."

// GenerateRequest carries the user's request and the confirmed tool choices.
type GenerateRequest struct {
	UserPrompt               string `json:"userNaturalLanguagePrompt"`
	SelectedTriggerTool      string `json:"selectedTriggerTool"`
	SelectedProcessLogicTool string `json:"selectedProcessLogicTool"`
	SelectedActionTool       string `json:"selectedActionTool"`
	Model                    string `json:"selectedLlmModel"`
	AIExtractedTrigger       string `json:"aiExtractedTrigger,omitempty"`
	AIExtractedProcess       string `json:"aiExtractedProcess,omitempty"`
	AIExtractedAction        string `json:"aiExtractedAction,omitempty"`
}

// Generation is the model output and its two halves.
type Generation struct {
	Output        string `json:"output"`
	WorkflowJSON  string `json:"workflowJson"`
	GuideMarkdown string `json:"guideMarkdown"`
}

// Check reports every missing or unknown field.
func (r GenerateRequest) Check(models func(string) bool) error {
	var issues []FieldIssue
	if strings.TrimSpace(r.UserPrompt) == "" {
		issues = append(issues, FieldIssue{"userNaturalLanguagePrompt", "required"})
	}
	issues = append(issues, checkTool("selectedTriggerTool", r.SelectedTriggerTool, tools.Triggers())...)
	issues = append(issues, checkTool("selectedProcessLogicTool", r.SelectedProcessLogicTool, tools.Processes())...)
	issues = append(issues, checkTool("selectedActionTool", r.SelectedActionTool, tools.Actions())...)
	issues = append(issues, checkModel("selectedLlmModel", r.Model, models)...)
	if len(issues) > 0 {
		return &ValidationError{Message: "Invalid request body for raw generation.", Issues: issues}
	}
	return nil
}

func checkTool(field, value string, c tools.Catalog) []FieldIssue {
	switch {
	case value == "":
		return []FieldIssue{{field, "required"}}
	case !c.Contains(value):
		return []FieldIssue{{field, "unknown " + string(c.Category) + " tool"}}
	}
	return nil
}

func checkModel(field, value string, allowed func(string) bool) []FieldIssue {
	switch {
	case value == "":
		return []FieldIssue{{field, "required"}}
	case !allowed(value):
		return []FieldIssue{{field, "unsupported model"}}
	}
	return nil
}

// Generate fills the generation prompt, asks the model for a workflow plus
// guide and splits the answer.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (Generation, error) {
	if err := req.Check(s.allowedModel); err != nil {
		return Generation{}, err
	}
	if err := s.ensureClient(); err != nil {
		return Generation{}, err
	}

	tpl, err := s.activePrompt(prompts.GenerationMain)
	if err != nil {
		return Generation{}, err
	}

	values := map[string]string{
		prompts.VarNaturalLanguage:      req.UserPrompt,
		prompts.VarSelectedTrigger:      req.SelectedTriggerTool,
		prompts.VarSelectedProcessLogic: req.SelectedProcessLogicTool,
		prompts.VarSelectedAction:       req.SelectedActionTool,
	}
	setIfPresent(values, prompts.VarExtractedTrigger, req.AIExtractedTrigger)
	setIfPresent(values, prompts.VarExtractedProcess, req.AIExtractedProcess)
	setIfPresent(values, prompts.VarExtractedAction, req.AIExtractedAction)
	if training := s.trainingData(); training != "" {
		values[prompts.VarTrainingData] = training
	}

	log.Debug().Int("version", tpl.Version).Str("model", req.Model).Msg("Using generation prompt")
	filled := prompts.FillPrompt(prompts.GenerationMain, tpl.Content, values)

	out, err := s.complete(ctx, llm.Request{
		Operation: "generate",
		Model:     req.Model,
		System:    SystemMessage,
		Prompt:    filled,
	})
	if err != nil {
		return Generation{}, err
	}

	workflow, guide := SplitOutput(out)
	return Generation{Output: out, WorkflowJSON: workflow, GuideMarkdown: guide}, nil
}

// trainingData returns the active training examples, or "" when none exist.
func (s *Service) trainingData() string {
	v, err := s.prompts.Active(prompts.GenerationMainTrainingData)
	if err != nil {
		if !errors.Is(err, prompts.ErrNotFound) {
			log.Warn().Err(err).Msg("Could not load training data")
		}
		return ""
	}
	return v.Content
}

// SplitOutput separates workflow JSON and guide markdown. The JSON part is
// unfenced and repaired when possible; without a separator the whole answer
// is searched for JSON and the guide is empty.
func SplitOutput(out string) (workflowJSON, guideMarkdown string) {
	jsonPart := out
	if i := strings.Index(out, Separator); i >= 0 {
		jsonPart = out[:i]
		guideMarkdown = strings.TrimSpace(out[i+len(Separator):])
	}

	extracted, ok := llm.ExtractJSON(llm.StripCodeFences(jsonPart))
	if !ok {
		return strings.TrimSpace(jsonPart), guideMarkdown
	}
	repaired, stats, err := llm.RepairJSON(extracted)
	if err != nil {
		log.Warn().Err(err).Msg("Workflow JSON could not be repaired, returning it as generated")
		return extracted, guideMarkdown
	}
	if stats.WasRepaired {
		log.Info().Strs("strategies", stats.Strategies).Msg("Repaired workflow JSON")
	}
	return repaired, guideMarkdown
}
