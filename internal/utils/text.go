package utils

import "strings"

// TruncateForLog flattens s onto one line and shortens it to limit runes,
// appending an ellipsis when truncated. Response bodies and document text
// are multi-line, which breaks console log output.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// IsBlank reports whether s contains only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
