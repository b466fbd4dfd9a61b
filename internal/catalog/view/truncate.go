package view

import "unicode/utf8"

// Ellipsis is appended to truncated text.
const Ellipsis = "..."

// Display budgets used by product cards.
const (
	TitleLimit       = 50
	DescriptionLimit = 100
)

// Truncate returns text unchanged when it has at most limit characters,
// otherwise its first limit characters followed by Ellipsis. Characters are
// counted as runes; word boundaries are ignored.
func Truncate(text string, limit int) string {
	limit = max(limit, 0)
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + Ellipsis
}
