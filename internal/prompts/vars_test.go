package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFill_MissingBecomesNA(t *testing.T) {
	out := Fill("Hi {{NAME}}, goal: {{GOAL}}", []string{"NAME", "GOAL"}, map[string]string{"NAME": "Ann"})
	assert.Equal(t, "Hi Ann, goal: N/A", out)
}

func TestFill_EmptyValueKept(t *testing.T) {
	out := Fill("[{{A}}]", []string{"A"}, map[string]string{"A": ""})
	assert.Equal(t, "[]", out)
}

func TestFill_AllOccurrencesSinglePass(t *testing.T) {
	out := Fill("{{A}} and {{A}} then {{B}}", []string{"A", "B"}, map[string]string{
		"A": "{{B}}",
		"B": "b",
	})
	assert.Equal(t, "{{B}} and {{B}} then b", out)
}

func TestFill_UnlistedPlaceholdersUntouched(t *testing.T) {
	out := Fill("{{A}} {{OTHER}}", []string{"A"}, map[string]string{"A": "x"})
	assert.Equal(t, "x {{OTHER}}", out)
}

func TestFillPrompt_GenerationGuide(t *testing.T) {
	tpl := "{{USER_NATURAL_LANGUAGE_PROMPT}}|{{SELECTED_TRIGGER_TOOL}}|{{N8N_WORKFLOW_JSON}}|{{TRAINING_DATA}}"
	out := FillPrompt(GenerationGuide, tpl, map[string]string{
		VarNaturalLanguage: "sync sheets",
		VarWorkflowJSON:    "{}",
	})
	// TRAINING_DATA is not a guide placeholder
	assert.Equal(t, "sync sheets|N/A|{}|{{TRAINING_DATA}}", out)
}

func TestParsePlaceholders(t *testing.T) {
	names := ParsePlaceholders("{{B}} {{A_1}} {{B}} {{lower}} {{ C }}")
	assert.Equal(t, []string{"B", "A_1"}, names)
}

func TestUndeclared(t *testing.T) {
	assert.Empty(t, Undeclared(Validation, "Check {{USER_PROMPT}}"))
	assert.Equal(t, []string{"TRAINING_DATA"}, Undeclared(Validation, "{{USER_PROMPT}} {{TRAINING_DATA}}"))
	assert.Equal(t, []string{"USER_PROMPT"}, Undeclared(GenerationMainTrainingData, "{{USER_PROMPT}}"))
}

func TestPromptTypeMetadata(t *testing.T) {
	pt, err := ParseType("generation_main")
	require.NoError(t, err)
	assert.Equal(t, GenerationMain, pt)
	assert.Equal(t, "Generation Main", pt.DisplayName())
	assert.Equal(t, "generation_main.json", pt.Filename())
	assert.Len(t, pt.Tokens(), 8)
	assert.Contains(t, pt.Tokens(), "{{TRAINING_DATA}}")

	assert.Equal(t, []string{"{{USER_PROMPT}}"}, Validation.Tokens())
	assert.Empty(t, GenerationMainTrainingData.Variables())
	assert.Equal(t, "Generation Main Training Data", GenerationMainTrainingData.DisplayName())

	_, err = ParseType("bogus")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestHeuristicEstimator(t *testing.T) {
	e := NewTokenEstimator("")
	assert.Equal(t, 0, e.Estimate(""))
	assert.Equal(t, 1, e.Estimate("abcd"))
	assert.Equal(t, 2, e.Estimate("abcde"))
}
