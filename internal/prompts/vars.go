package prompts

import (
	"regexp"
	"strings"
)

// NotAvailable is substituted for placeholders that have no value.
const NotAvailable = "N/A"

// Matches {{UPPER_SNAKE_CASE}}; capture 1 = name.
var varPattern = regexp.MustCompile(`\{\{([A-Z][A-Z0-9_]*)\}\}`)

// ParsePlaceholders returns the distinct placeholder names in template, in
// order of first appearance.
func ParsePlaceholders(template string) []string {
	matches := varPattern.FindAllStringSubmatch(template, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Undeclared lists placeholders used in template that t does not fill.
func Undeclared(t PromptType, template string) []string {
	known := make(map[string]struct{})
	for _, v := range typeVariables[t] {
		known[v] = struct{}{}
	}
	var out []string
	for _, name := range ParsePlaceholders(template) {
		if _, ok := known[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// Fill replaces every {{NAME}} for each name in names. Missing keys become
// "N/A"; an empty value is kept empty. Substituted values are not expanded
// again.
func Fill(template string, names []string, values map[string]string) string {
	if len(names) == 0 {
		return template
	}
	pairs := make([]string, 0, len(names)*2)
	for _, name := range names {
		val, ok := values[name]
		if !ok {
			val = NotAvailable
		}
		pairs = append(pairs, Token(name), val)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// FillPrompt fills exactly the placeholders recognised for t.
func FillPrompt(t PromptType, template string, values map[string]string) string {
	return Fill(template, typeVariables[t], values)
}
