package utils

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"short string untouched", "hello", 10, "hello"},
		{"exact length untouched", "hello", 5, "hello"},
		{"long string cut", "hello world", 5, "hello..."},
		{"zero max", "hello", 0, ""},
		{"multibyte runes", "こんにちは世界", 5, "こんにちは..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.input, tt.max)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
			}
		})
	}
}

func TestSplitMessage_ShortPassthrough(t *testing.T) {
	chunks := SplitMessage("short", 100)
	if len(chunks) != 1 || chunks[0] != "short" {
		t.Fatalf("expected single chunk, got %v", chunks)
	}
}

func TestSplitMessage_SplitsLongContent(t *testing.T) {
	content := strings.Repeat("x", 250)
	chunks := SplitMessage(content, 100)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len([]rune(c)) > 100 {
			t.Errorf("chunk %d exceeds limit: %d runes", i, len([]rune(c)))
		}
	}
}

func TestSplitMessage_PrefersNewlineBreak(t *testing.T) {
	content := strings.Repeat("a", 90) + "\n" + strings.Repeat("b", 90)
	chunks := SplitMessage(content, 100)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
	if strings.Contains(chunks[0], "b") {
		t.Errorf("expected first chunk to break at newline, got %q", chunks[0])
	}
}
