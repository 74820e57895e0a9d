// Package extract pulls a JSON document out of free-form model output.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var openingFence = regexp.MustCompile("^```[A-Za-z0-9_+-]*")

// JSONSubstring returns the part of text most likely to be the JSON payload.
// Text that already parses is returned trimmed and otherwise unchanged. Otherwise
// a wrapping markdown fence is stripped and, if the result still does not parse, the span from
// the first opening bracket to the last closing bracket is returned ('[' ']' when
// expectArray, '{' '}' otherwise). Without such a span the cleaned text is returned.
// It never validates the result; callers decode and handle failures.
func JSONSubstring(text string, expectArray bool) string {
	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) {
		return trimmed
	}

	cleaned := StripCodeFences(trimmed)
	if json.Valid([]byte(cleaned)) {
		return cleaned
	}

	open, closing := byte('{'), byte('}')
	if expectArray {
		open, closing = '[', ']'
	}
	start := strings.IndexByte(cleaned, open)
	end := strings.LastIndexByte(cleaned, closing)
	if start >= 0 && end > start {
		return cleaned[start : end+1]
	}
	return cleaned
}

// StripCodeFences removes the markdown fence wrapping text (an opening ``` with optional
// language tag and the closing ```) and trims. Fences inside the payload are kept.
func StripCodeFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimSpace(openingFence.ReplaceAllString(s, ""))
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
