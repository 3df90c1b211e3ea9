package tools

import "strings"

// Match picks the candidate that best fits extracted text. Rules, first hit
// wins:
//  1. case-insensitive equality with a candidate name
//  2. the text contains one of a candidate's keywords
//  3. the text contains a candidate's base name (the part before " (")
//  4. the first candidate
//
// An empty candidate list yields "".
func Match(candidates []string, keywords map[string][]string, extracted string) string {
	if len(candidates) == 0 {
		return ""
	}
	text := strings.ToLower(strings.TrimSpace(extracted))
	if text == "" {
		return candidates[0]
	}

	for _, c := range candidates {
		if strings.ToLower(c) == text {
			return c
		}
	}

	for _, c := range candidates {
		for _, kw := range keywords[c] {
			if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
				return c
			}
		}
	}

	for _, c := range candidates {
		base := c
		if i := strings.Index(c, " ("); i >= 0 {
			base = c[:i]
		}
		base = strings.ToLower(strings.TrimSpace(base))
		if base != "" && strings.Contains(text, base) {
			return c
		}
	}

	return candidates[0]
}
