package strings

import (
	"strings"
)

// DefaultDescriptionMaxLen is the default maximum length for step
// descriptions in table output. Shared so every listing truncates the same
// way.
const DefaultDescriptionMaxLen = 60

// MinTruncateLen is the minimum maxLen value for TruncateDescription.
// Values smaller than this would not leave room for content plus "...".
const MinTruncateLen = 4

// BodySnippetMaxLen bounds API response bodies quoted in error messages.
const BodySnippetMaxLen = 2048

// TruncateDescription truncates a string to maxLen characters and ensures
// single-line output: newlines become spaces, runs of whitespace collapse,
// and "..." marks a truncation.
//
// Slicing is rune-based so a multi-byte character is never cut in half.
func TruncateDescription(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	// strings.Fields splits on any whitespace (\n, \r, \t, repeated spaces).
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// BodySnippet trims an API response body for error messages and logs. Fatal
// statuses must stay diagnosable from a single run, so the body is included
// up to BodySnippetMaxLen.
func BodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "<empty body>"
	}
	if len(s) > BodySnippetMaxLen {
		return s[:BodySnippetMaxLen] + "... (truncated)"
	}
	return s
}
