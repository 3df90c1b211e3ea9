package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/flowforge/internal/metrics"
)

var (
	// ErrNotJSON means no JSON value could be recovered from the output.
	ErrNotJSON = fmt.Errorf("%w: not valid JSON", ErrMalformedResponse)
	// ErrUnexpectedShape means the output parsed but does not fit the target type.
	ErrUnexpectedShape = fmt.Errorf("%w: unexpected structure", ErrMalformedResponse)
)

// DecodeJSON extracts the JSON object from a model answer, repairs it when
// needed and unmarshals it into target. operation labels repair metrics.
func DecodeJSON(operation, raw string, target any) (RepairStats, error) {
	jsonStr, ok := ExtractJSON(raw)
	if !ok {
		log.Debug().Str("operation", operation).Str("response", truncateForLog(raw, 200)).Msg("No JSON found in LLM response")
		return RepairStats{}, ErrNotJSON
	}

	repaired, stats, err := RepairJSON(jsonStr)
	if stats.WasRepaired {
		metrics.RecordJSONRepair(operation, err == nil)
		log.Info().Str("operation", operation).Strs("strategies", stats.Strategies).
			Int("errors_fixed", stats.ErrorsFixed).Dur("repair_time", stats.RepairTime).
			Msg("Repaired JSON in LLM response")
	}
	if err != nil {
		log.Warn().Err(err).Str("operation", operation).Str("json", truncateForLog(jsonStr, 500)).Msg("JSON repair failed")
		return stats, fmt.Errorf("%w: %v", ErrNotJSON, err)
	}

	if err := json.Unmarshal([]byte(repaired), target); err != nil {
		return stats, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	return stats, nil
}

// ExtractJSON returns the JSON object or array embedded in a model answer,
// looking inside markdown code fences and skipping surrounding prose.
// Top-level bracketed spans are tried in order: the first valid object, then
// the first object RepairJSON can fix, then the same for arrays. Brackets in
// prose such as "step [1]" therefore lose to the workflow object after them.
func ExtractJSON(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	if inner, ok := fencedBlock(raw); ok {
		inner = strings.TrimSpace(inner)
		if strings.HasPrefix(inner, "{") || strings.HasPrefix(inner, "[") {
			return inner, true
		}
	}

	candidates := jsonCandidates(raw)
	if len(candidates) == 0 {
		return "", false
	}

	valid := func(s string) bool { return json.Valid([]byte(s)) }
	repairable := func(s string) bool {
		_, _, err := RepairJSON(s)
		return err == nil
	}
	for _, object := range []bool{true, false} {
		for _, accept := range []func(string) bool{valid, repairable} {
			for _, c := range candidates {
				if c.object == object && accept(c.text) {
					return c.text, true
				}
			}
		}
	}
	return candidates[0].text, true
}

type jsonCandidate struct {
	text   string
	object bool
}

// jsonCandidates lists the bracketed spans of s that are not nested in an
// earlier balanced span. An unbalanced opener yields the rest of s.
func jsonCandidates(s string) []jsonCandidate {
	var out []jsonCandidate
	for i := 0; i < len(s); {
		off := strings.IndexAny(s[i:], "{[")
		if off == -1 {
			break
		}
		start := i + off
		object := s[start] == '{'
		if end := matchingClose(s, start); end > 0 {
			out = append(out, jsonCandidate{text: s[start : end+1], object: object})
			i = end + 1
			continue
		}
		out = append(out, jsonCandidate{text: s[start:], object: object})
		i = start + 1
	}
	return out
}

// StripCodeFences removes a surrounding ```lang ... ``` wrapper if present.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if inner, ok := fencedBlock(s); ok && strings.HasPrefix(s, "```") {
		return strings.TrimSpace(inner)
	}
	return s
}

// fencedBlock returns the content of the first ``` fenced block.
func fencedBlock(s string) (string, bool) {
	open := strings.Index(s, "```")
	if open == -1 {
		return "", false
	}
	rest := s[open+3:]
	nl := strings.IndexByte(rest, '\n')
	if nl == -1 {
		return "", false
	}
	body := rest[nl+1:]
	end := strings.Index(body, "```")
	if end == -1 {
		return body, true
	}
	return body[:end], true
}

// matchingClose finds the bracket closing s[start], ignoring brackets inside strings.
func matchingClose(s string, start int) int {
	open := s[start]
	closing := byte('}')
	if open == '[' {
		closing = ']'
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func truncateForLog(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
