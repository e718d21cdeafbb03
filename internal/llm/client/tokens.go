package llmclient

import (
	"strings"
	"unicode/utf8"
)

// CountTokens is a rough token estimate: whitespace-delimited words, or a
// quarter of the characters when that is larger (dense code, long literals).
func CountTokens(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	chars := utf8.RuneCountInString(text) / 4
	if chars > words {
		return chars
	}
	return words
}
