package telegram

import (
	"strings"
	"unicode/utf8"
)

const fence = "```"

// SplitMessage splits text into parts of at most maxLen runes, preferring
// paragraph and line breaks. A code block cut in two is closed at the end
// of one part and reopened at the start of the next.
func SplitMessage(text string, maxLen int) []string {
	if utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	// Room for a closing fence and its newline, and a reopened one.
	fenced := maxLen > 4*(len(fence)+1)
	budget := maxLen
	if fenced {
		budget = maxLen - len(fence) - 1
	}

	var parts []string
	reopen := false
	for text != "" {
		if reopen {
			text = fence + "\n" + text
		}
		runes := []rune(text)
		if len(runes) <= maxLen {
			parts = append(parts, text)
			break
		}

		chunk := string(runes[:budget])
		splitAt := budget
		if i := strings.LastIndex(chunk, "\n\n"); i > len(chunk)/2 {
			splitAt = utf8.RuneCountInString(chunk[:i+2])
		} else if i := strings.LastIndex(chunk, "\n"); i > len(chunk)/2 {
			splitAt = utf8.RuneCountInString(chunk[:i+1])
		}

		part := string(runes[:splitAt])
		text = string(runes[splitAt:])

		reopen = fenced && strings.Count(part, fence)%2 != 0
		if reopen {
			if !strings.HasSuffix(part, "\n") {
				part += "\n"
			}
			part += fence
		}
		parts = append(parts, part)
	}

	return parts
}

// FixMarkdown closes unbalanced code blocks and inline code spans so
// Telegram accepts the message.
func FixMarkdown(text string) string {
	if strings.Count(text, fence)%2 != 0 {
		text += "\n" + fence
	}
	return fixInlineCode(text)
}

func fixInlineCode(text string) string {
	var builder strings.Builder
	inCodeBlock := false
	inlineOpen := false

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if i+2 < len(runes) && string(runes[i:i+3]) == fence {
			if inlineOpen {
				builder.WriteRune('`')
				inlineOpen = false
			}
			inCodeBlock = !inCodeBlock
			builder.WriteString(fence)
			i += 2
			continue
		}

		if !inCodeBlock && runes[i] == '`' {
			inlineOpen = !inlineOpen
		}

		builder.WriteRune(runes[i])
	}

	if inlineOpen {
		builder.WriteRune('`')
	}

	return builder.String()
}
