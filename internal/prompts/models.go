package prompts

import (
	"fmt"
	"strings"
	"time"
)

// PromptType identifies one of the managed prompt documents.
type PromptType string

const (
	Validation                 PromptType = "validation"
	GenerationMain             PromptType = "generation_main"
	GenerationGuide            PromptType = "generation_guide"
	GenerationMainTrainingData PromptType = "generation_main_training_data"
)

// Placeholder names shared by the generation prompts.
const (
	VarUserPrompt           = "USER_PROMPT"
	VarNaturalLanguage      = "USER_NATURAL_LANGUAGE_PROMPT"
	VarExtractedTrigger     = "AI_EXTRACTED_TRIGGER_TEXT"
	VarExtractedProcess     = "AI_EXTRACTED_PROCESS_TEXT"
	VarExtractedAction      = "AI_EXTRACTED_ACTION_TEXT"
	VarSelectedTrigger      = "SELECTED_TRIGGER_TOOL"
	VarSelectedProcessLogic = "SELECTED_PROCESS_LOGIC_TOOL"
	VarSelectedAction       = "SELECTED_ACTION_TOOL"
	VarTrainingData         = "TRAINING_DATA"
	VarWorkflowJSON         = "N8N_WORKFLOW_JSON"
)

// PromptVersion is one stored revision of a prompt. JSON field names match the
// on-disk format written by earlier releases of the admin tool.
type PromptVersion struct {
	Version           int       `json:"version" yaml:"version"`
	Content           string    `json:"content" yaml:"content"`
	ChangeDescription string    `json:"changeDescription" yaml:"changeDescription"`
	CreatedAt         time.Time `json:"createdAt" yaml:"createdAt"`
	LastModifiedAt    time.Time `json:"lastModifiedAt" yaml:"lastModifiedAt"`
	IsActive          bool      `json:"isActive" yaml:"isActive"`
}

// PromptSet is the full history of a prompt type, persisted as a JSON array.
type PromptSet []PromptVersion

// AllTypes lists every prompt type in display order.
func AllTypes() []PromptType {
	return []PromptType{Validation, GenerationMain, GenerationGuide, GenerationMainTrainingData}
}

var typeFilenames = map[PromptType]string{
	Validation:                 "validation.json",
	GenerationMain:             "generation_main.json",
	GenerationGuide:            "generation_guide.json",
	GenerationMainTrainingData: "generation_main_training_data.json",
}

var generationVars = []string{
	VarNaturalLanguage,
	VarExtractedTrigger,
	VarExtractedProcess,
	VarExtractedAction,
	VarSelectedTrigger,
	VarSelectedProcessLogic,
	VarSelectedAction,
}

var typeVariables = map[PromptType][]string{
	Validation:                 {VarUserPrompt},
	GenerationMain:             append(append([]string{}, generationVars...), VarTrainingData),
	GenerationGuide:            append(append([]string{}, generationVars...), VarWorkflowJSON),
	GenerationMainTrainingData: {},
}

// ParseType converts a wire name into a PromptType.
func ParseType(s string) (PromptType, error) {
	t := PromptType(strings.TrimSpace(s))
	if _, ok := typeFilenames[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return t, nil
}

// Valid reports whether t is one of the known prompt types.
func (t PromptType) Valid() bool {
	_, ok := typeFilenames[t]
	return ok
}

// Filename is the JSON file that stores the type's versions.
func (t PromptType) Filename() string {
	return typeFilenames[t]
}

// Variables returns the placeholder names recognised for the type, without braces.
func (t PromptType) Variables() []string {
	return append([]string(nil), typeVariables[t]...)
}

// Tokens returns the recognised placeholders in their {{NAME}} form.
func (t PromptType) Tokens() []string {
	vars := typeVariables[t]
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		out = append(out, Token(v))
	}
	return out
}

// DisplayName turns "generation_main" into "Generation Main".
func (t PromptType) DisplayName() string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Token wraps a placeholder name in double braces.
func Token(name string) string {
	return "{{" + name + "}}"
}

// MaxVersion returns the highest version number in the set, or 0 when empty.
func (s PromptSet) MaxVersion() int {
	max := 0
	for _, p := range s {
		if p.Version > max {
			max = p.Version
		}
	}
	return max
}

// Active returns the flagged active entry. When no entry is flagged the entry
// with the highest version is returned and fallback is true. ok is false only
// for an empty set.
func (s PromptSet) Active() (v PromptVersion, fallback bool, ok bool) {
	if len(s) == 0 {
		return PromptVersion{}, false, false
	}
	for _, p := range s {
		if p.IsActive {
			return p, false, true
		}
	}
	latest := s[0]
	for _, p := range s[1:] {
		if p.Version > latest.Version {
			latest = p
		}
	}
	return latest, true, true
}

// Find returns the entry with the given version number.
func (s PromptSet) Find(version int) (PromptVersion, bool) {
	for _, p := range s {
		if p.Version == version {
			return p, true
		}
	}
	return PromptVersion{}, false
}
