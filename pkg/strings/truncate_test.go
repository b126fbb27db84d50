package strings

import (
	"strings"
	"testing"
)

func TestTruncateDescription(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{
			name:     "short string unchanged",
			input:    "Root organization unit",
			maxLen:   30,
			expected: "Root organization unit",
		},
		{
			name:     "exact length unchanged",
			input:    "hello",
			maxLen:   5,
			expected: "hello",
		},
		{
			name:     "long string truncated",
			input:    "hello world this is a long string",
			maxLen:   15,
			expected: "hello world ...",
		},
		{
			name:     "newlines replaced with spaces",
			input:    "demo application\nand demo user",
			maxLen:   40,
			expected: "demo application and demo user",
		},
		{
			name:     "runs of whitespace collapsed",
			input:    "hello \t\t  world",
			maxLen:   20,
			expected: "hello world",
		},
		{
			name:     "leading and trailing whitespace trimmed",
			input:    "  hello world  ",
			maxLen:   20,
			expected: "hello world",
		},
		{
			name:     "empty string",
			input:    "",
			maxLen:   10,
			expected: "",
		},
		{
			name:     "whitespace only becomes empty",
			input:    "   \n\t  ",
			maxLen:   10,
			expected: "",
		},
		{
			name:     "maxLen below minimum clamped",
			input:    "hello",
			maxLen:   2,
			expected: "h...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TruncateDescription(tt.input, tt.maxLen)
			if result != tt.expected {
				t.Errorf("TruncateDescription(%q, %d) = %q, want %q",
					tt.input, tt.maxLen, result, tt.expected)
			}
		})
	}
}

func TestTruncateDescriptionRuneLength(t *testing.T) {
	// Truncation must respect rune count, not byte count.
	input := "日本語テスト" // 6 characters, 18 bytes in UTF-8
	result := TruncateDescription(input, 5)

	expected := "日本..."
	if result != expected {
		t.Errorf("Expected %q but got %q", expected, result)
	}

	runeCount := 0
	for range result {
		runeCount++
	}
	if runeCount != 5 {
		t.Errorf("Expected 5 runes but got %d", runeCount)
	}
}

func TestBodySnippet(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "empty body",
			input:    nil,
			expected: "<empty body>",
		},
		{
			name:     "whitespace only",
			input:    []byte("  \n\t "),
			expected: "<empty body>",
		},
		{
			name:     "short body passed through",
			input:    []byte(`{"code": "OU-60002"}`),
			expected: `{"code": "OU-60002"}`,
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    []byte("\n  error text  \n"),
			expected: "error text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := BodySnippet(tt.input)
			if result != tt.expected {
				t.Errorf("BodySnippet(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestBodySnippetTruncatesLongBodies(t *testing.T) {
	long := strings.Repeat("x", BodySnippetMaxLen+100)
	result := BodySnippet([]byte(long))

	if !strings.HasSuffix(result, "... (truncated)") {
		t.Errorf("Expected truncation marker, got suffix %q", result[len(result)-20:])
	}
	if len(result) != BodySnippetMaxLen+len("... (truncated)") {
		t.Errorf("Expected bounded length, got %d", len(result))
	}
}
