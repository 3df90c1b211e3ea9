package generator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotConfigured means no LLM client is available, usually a missing API key.
	ErrNotConfigured = errors.New("generator: LLM API key not configured")
	// ErrPromptNotConfigured means the prompt type has no usable active version.
	ErrPromptNotConfigured = errors.New("generator: prompt not configured")
)

// FieldIssue describes one problem with a request field.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports invalid caller input.
type ValidationError struct {
	Message string
	Issues  []FieldIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Field+": "+is.Message)
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

// MalformedOutputError wraps model output that could not be interpreted.
// Err is llm.ErrNotJSON or llm.ErrUnexpectedShape.
type MalformedOutputError struct {
	Raw    string
	Detail string
	Err    error
}

func (e *MalformedOutputError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Detail)
	}
	return e.Err.Error()
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }
