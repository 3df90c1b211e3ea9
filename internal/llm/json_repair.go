package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
)

// RepairStats describes what RepairJSON had to do.
type RepairStats struct {
	OriginalBytes int           `json:"original_bytes"`
	RepairedBytes int           `json:"repaired_bytes"`
	CommentsLost  int           `json:"comments_lost"`
	ErrorsFixed   int           `json:"errors_fixed"`
	RepairTime    time.Duration `json:"repair_time"`
	Strategies    []string      `json:"strategies"`
	WasRepaired   bool          `json:"was_repaired"`
}

var (
	trailingCommaObject = regexp.MustCompile(`,\s*}`)
	trailingCommaArray  = regexp.MustCompile(`,\s*]`)
	blockComment        = regexp.MustCompile(`(?s)/\*.*?\*/`)
	unquotedKey         = regexp.MustCompile(`([{,]\s*)([a-zA-Z_][a-zA-Z0-9_]*)(\s*:)`)
	singleQuoted        = regexp.MustCompile(`'([^'\n]*)'`)
)

// RepairJSON tries to turn almost-JSON produced by a model into valid JSON.
// Strategies run in order:
//  1. trailing commas
//  2. JavaScript comments
//  3. unquoted keys
//  4. single quoted strings
//  5. unclosed objects and arrays
//  6. the jsonrepair library
//
// A strategy is skipped once the text parses. Valid input is returned unchanged.
func RepairJSON(raw string) (repaired string, stats RepairStats, err error) {
	start := time.Now()
	stats.OriginalBytes = len(raw)
	defer func() {
		stats.RepairedBytes = len(repaired)
		stats.RepairTime = time.Since(start)
	}()

	if json.Valid([]byte(raw)) {
		return raw, stats, nil
	}

	stats.WasRepaired = true
	repaired = raw

	apply := func(name string, fn func(string) string) {
		if json.Valid([]byte(repaired)) {
			return
		}
		next := fn(repaired)
		if next != repaired {
			repaired = next
			stats.Strategies = append(stats.Strategies, name)
			stats.ErrorsFixed++
		}
	}

	apply("trailing_commas", func(s string) string {
		s = trailingCommaObject.ReplaceAllString(s, "}")
		return trailingCommaArray.ReplaceAllString(s, "]")
	})
	apply("comments_removed", func(s string) string {
		out, n := removeComments(s)
		stats.CommentsLost += n
		return out
	})
	apply("key_quotes", func(s string) string {
		return unquotedKey.ReplaceAllString(s, `$1"$2"$3`)
	})
	apply("single_quotes", func(s string) string {
		return singleQuoted.ReplaceAllString(s, `"$1"`)
	})
	apply("completion", completeJSON)

	if json.Valid([]byte(repaired)) {
		return repaired, stats, nil
	}

	fixed, libErr := jsonrepair.JSONRepair(repaired)
	if libErr == nil && json.Valid([]byte(fixed)) {
		if fixed != repaired {
			stats.Strategies = append(stats.Strategies, "jsonrepair_library")
			stats.ErrorsFixed++
		}
		repaired = fixed
		return repaired, stats, nil
	}

	return repaired, stats, fmt.Errorf("%w: JSON repair failed after %d strategies", ErrMalformedResponse, len(stats.Strategies))
}

// removeComments strips // line comments that are outside string literals and
// /* */ block comments. It returns the number of comments removed.
func removeComments(s string) (string, int) {
	removed := 0
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if idx := lineCommentIndex(line); idx >= 0 {
			lines[i] = line[:idx]
			removed++
		}
	}
	s = strings.Join(lines, "\n")

	matches := blockComment.FindAllStringIndex(s, -1)
	removed += len(matches)
	return blockComment.ReplaceAllString(s, ""), removed
}

// lineCommentIndex finds "//" outside a double-quoted string, so URLs survive.
func lineCommentIndex(line string) int {
	inString := false
	escaped := false
	for i := 0; i < len(line)-1; i++ {
		c := line[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '/' && line[i+1] == '/':
			return i
		}
	}
	return -1
}

// completeJSON closes unterminated strings, objects and arrays in LIFO order.
func completeJSON(s string) string {
	s = strings.TrimSpace(s)
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
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
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if inString {
		s += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		s += string(stack[i])
	}
	return s
}
