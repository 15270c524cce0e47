package utils

import "strings"

// Truncate shortens s to at most max runes, appending "..." when cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// SplitMessage splits content into chunks of at most limit runes each,
// preferring to break at newlines so code blocks and lists stay readable.
func SplitMessage(content string, limit int) []string {
	if limit <= 0 || content == "" {
		return []string{content}
	}

	runes := []rune(content)
	if len(runes) <= limit {
		return []string{content}
	}

	var chunks []string
	for len(runes) > limit {
		cut := limit
		// Look back for a newline within the last quarter of the chunk.
		for i := limit; i > limit*3/4; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
