package repair

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lueurxax/feed-digest/internal/core/links"
)

var (
	urlKeyPattern     = regexp.MustCompile(`"url"\s*:\s*"`)
	summaryKeyPattern = regexp.MustCompile(`"summary"\s*:\s*"`)
)

// ExtractSummaries scans text for "url" values matching the requested URLs
// and reads the "summary" value that follows each one before the next "url"
// key. It needs no valid structure at all, so it is the last tier.
func ExtractSummaries(text string, urls []string) Result {
	wanted := make(map[string]bool, len(urls))
	for _, u := range urls {
		wanted[links.Canonical(u)] = true
	}

	result := make(Result)
	matches := urlKeyPattern.FindAllStringIndex(text, -1)

	for i, match := range matches {
		value, end := readString(text, match[1])
		key := links.Canonical(value)

		if !wanted[key] {
			continue
		}

		if _, seen := result[key]; seen {
			continue
		}

		limit := len(text)
		if i+1 < len(matches) {
			limit = matches[i+1][0]
		}

		if end >= limit {
			continue
		}

		segment := text[end:limit]

		loc := summaryKeyPattern.FindStringIndex(segment)
		if loc == nil {
			continue
		}

		summary, _ := readString(segment, loc[1])
		if summary = strings.TrimSpace(summary); summary != "" {
			result[key] = summary
		}
	}

	return result
}

// readString decodes the JSON string body starting at pos, just after the
// opening quote. It stops at the first unescaped quote or the end of input
// and returns the decoded value with the position after the closing quote.
func readString(text string, pos int) (string, int) {
	var b strings.Builder

	for i := pos; i < len(text); i++ {
		c := text[i]

		switch c {
		case '"':
			return b.String(), i + 1
		case '\\':
			if i+1 >= len(text) {
				return b.String(), len(text)
			}

			i++
			i += writeEscape(&b, text, i)
		default:
			b.WriteByte(c)
		}
	}

	return b.String(), len(text)
}

// writeEscape writes the character escaped at text[i] and returns how many
// extra bytes the escape consumed.
func writeEscape(b *strings.Builder, text string, i int) int {
	switch text[i] {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'u':
		if i+5 <= len(text) {
			if code, err := strconv.ParseUint(text[i+1:i+5], 16, 32); err == nil {
				r := rune(code)
				if !utf8.ValidRune(r) {
					r = utf8.RuneError
				}

				b.WriteRune(r)

				return 4
			}
		}

		b.WriteByte('u')
	default:
		// \" \\ \/ and anything unknown map to the character itself.
		b.WriteByte(text[i])
	}

	return 0
}
