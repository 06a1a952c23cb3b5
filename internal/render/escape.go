package render

import (
	"strings"
	"unicode/utf8"
)

// markdownEscaper escapes the characters reserved by Telegram MarkdownV2:
// \ _ * [ ] ( ) ~ ` > # + - = | { } . !
var markdownEscaper = func() *strings.Replacer {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	pairs := make([]string, 0, len(specialChars)*2)
	for _, char := range specialChars {
		pairs = append(pairs, char, "\\"+char)
	}
	return strings.NewReplacer(pairs...)
}()

// EscapeMarkdown escapes special characters for Telegram MarkdownV2 format
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

// truncate cuts s to at most max runes, marking the cut with an ellipsis
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}

// escapeWithin escapes s so the result is at most max runes. When s does not
// fit it is cut between source runes and marked with an ellipsis, so an
// escape pair is never split.
func escapeWithin(s string, max int) string {
	escaped := EscapeMarkdown(s)
	if utf8.RuneCountInString(escaped) <= max {
		return escaped
	}
	if max < 2 {
		return ""
	}

	var b strings.Builder
	used := 0
	for _, r := range s {
		piece := EscapeMarkdown(string(r))
		n := utf8.RuneCountInString(piece)
		if used+n > max-1 {
			break
		}
		b.WriteString(piece)
		used += n
	}
	b.WriteString("…")
	return b.String()
}
