package summarize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lueurxax/feed-digest/internal/platform/htmlutils"
)

const (
	extractiveSentences = 2
	ellipsis            = "…"
)

// Extractive builds a summary from the first sentences of text, truncated to
// maxChars and always ending in terminal punctuation.
func Extractive(text string, maxChars int) string {
	cleaned := htmlutils.CleanText(text)
	if cleaned == "" {
		return ""
	}

	summary := htmlutils.Truncate(firstSentences(cleaned, extractiveSentences), maxChars)

	return terminate(summary)
}

func firstSentences(text string, n int) string {
	runes := []rune(text)
	count := 0

	for i, r := range runes {
		if !isSentenceEnd(r) {
			continue
		}

		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}

		count++
		if count == n {
			return string(runes[:i+1])
		}
	}

	return text
}

func terminate(summary string) string {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return ""
	}

	last, _ := utf8.DecodeLastRuneInString(summary)
	if isSentenceEnd(last) {
		return summary
	}

	return summary + ellipsis
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	default:
		return false
	}
}
