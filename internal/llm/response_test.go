package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"plain object", `  {"a":1}  `, `{"a":1}`, true},
		{"fenced", "Here you go:\n```json\n{\"a\": 1}\n```\nthanks", `{"a": 1}`, true},
		{"prose around", `Sure! {"a": {"b": "}"}} hope this helps`, `{"a": {"b": "}"}}`, true},
		{"unterminated", `Result: {"a": [1, 2`, `{"a": [1, 2`, true},
		{"bracket in prose first", "Here is the workflow for step [1]:\n{\"nodes\": [1], \"connections\": {}}\nDone.", `{"nodes": [1], "connections": {}}`, true},
		{"repairable object beats prose array", `See [1]: {"nodes": [],}`, `{"nodes": [],}`, true},
		{"array only", `Values: [1, 2] end`, `[1, 2]`, true},
		{"trailing prose", `{"a":1} hope this helps`, `{"a":1}`, true},
		{"no json", "This is not JSON.", "", false},
		{"empty", "   ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"x":1}`, StripCodeFences("```json\n{\"x\":1}\n```"))
	assert.Equal(t, `{"x":1}`, StripCodeFences("  {\"x\":1}\n"))
	assert.Equal(t, "text with ``` inside", StripCodeFences("text with ``` inside"))
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Valid bool `json:"valid"`
	}

	_, err := DecodeJSON("validate", "```json\n{\"valid\": true,}\n```", &out)
	require.NoError(t, err)
	assert.True(t, out.Valid)

	out.Valid = false
	_, err = DecodeJSON("validate", "Checked parts [1] to [3]: {\"valid\": true}", &out)
	require.NoError(t, err)
	assert.True(t, out.Valid)

	_, err = DecodeJSON("validate", "This is not JSON.", &out)
	assert.ErrorIs(t, err, ErrNotJSON)
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = DecodeJSON("validate", `{"valid": "yes"}`, &out)
	assert.ErrorIs(t, err, ErrUnexpectedShape)
	assert.False(t, errors.Is(err, ErrNotJSON))
}
