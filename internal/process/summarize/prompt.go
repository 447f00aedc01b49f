package summarize

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lueurxax/feed-digest/internal/core/domain"
	"github.com/lueurxax/feed-digest/internal/platform/htmlutils"
)

const systemPromptTemplate = `You summarize news articles for a daily digest. Return STRICT JSON ONLY.
Output must be a single JSON object: {"items":[{"url":"<article url>","summary":"<summary>"}]}
with exactly one entry per input article, in input order.
Use double quotes. No trailing commas. No markdown. No extra keys.

Each entry:
- url: the article URL exactly as given in the input.
- summary: one or two plain-text sentences, at most %d characters. State the key fact (who/what/where/when if relevant).
  Avoid meta-language ("The article discusses..."). No HTML.`

func systemPrompt(maxChars int) string {
	return fmt.Sprintf(systemPromptTemplate, maxChars)
}

func buildUserPrompt(batch []candidate, inputChars int) string {
	var sb strings.Builder

	sb.WriteString("Articles:\n")

	for i, c := range batch {
		sb.WriteString("\n[")
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString("] URL: ")
		sb.WriteString(c.item.URL)
		sb.WriteString("\n")

		writeField(&sb, "Source", c.item.Source)
		writeField(&sb, "Title", c.item.Title)

		sb.WriteString("Content:\n")
		sb.WriteString(htmlutils.TruncateBytes(c.text, inputChars))
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeField(sb *strings.Builder, name, value string) {
	if value == "" {
		return
	}

	sb.WriteString(name)
	sb.WriteString(": ")
	sb.WriteString(value)
	sb.WriteString("\n")
}

func batchURLs(batch []candidate) []string {
	urls := make([]string, len(batch))
	for i, c := range batch {
		urls[i] = c.item.URL
	}

	return urls
}

// usableText returns the cleaned text an item would be summarized from:
// its full text when it is long enough, otherwise the longer of full text
// and snippet. Full text counts whether the enricher fetched it or the item
// arrived with it.
func usableText(item domain.ContentItem, minChars int) string {
	full := htmlutils.CleanText(item.RawContent)

	if runeLen(full) >= minChars {
		return full
	}

	snippet := htmlutils.CleanText(item.Snippet)
	if runeLen(snippet) > runeLen(full) {
		return snippet
	}

	return full
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
