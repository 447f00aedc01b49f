// Package htmlutils provides text cleanup helpers for feed and article content.
//
// The package handles:
//   - Tag stripping and entity decoding for feed snippets
//   - Visible text extraction from full HTML documents
//   - Unicode normalization and whitespace collapsing
//   - Rune-safe truncation
package htmlutils

import (
	"bytes"
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	nethtml "golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

const ellipsis = "…"

var tagRegex = regexp.MustCompile(`<(/?)([a-zA-Z0-9-]+)([^>]*)>`)

// skippedElements never contribute visible text.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
	"head":     true,
}

// blockElements end a line of visible text.
var blockElements = map[string]bool{
	"p":          true,
	"div":        true,
	"br":         true,
	"li":         true,
	"h1":         true,
	"h2":         true,
	"h3":         true,
	"h4":         true,
	"blockquote": true,
	"section":    true,
	"article":    true,
	"tr":         true,
}

// StripHTMLTags removes all HTML tags from text, keeping only the content.
func StripHTMLTags(text string) string {
	result := tagRegex.ReplaceAllString(text, " ")
	result = html.UnescapeString(result)

	return strings.TrimSpace(result)
}

// TextFromHTML returns the visible text of an HTML document, one block per line.
func TextFromHTML(doc []byte) string {
	root, err := nethtml.Parse(bytes.NewReader(doc))
	if err != nil {
		return StripHTMLTags(string(doc))
	}

	var sb strings.Builder

	var walk func(*nethtml.Node)

	walk = func(n *nethtml.Node) {
		if n.Type == nethtml.ElementNode && skippedElements[n.Data] {
			return
		}

		if n.Type == nethtml.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				sb.WriteString(text)
				sb.WriteByte(' ')
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == nethtml.ElementNode && blockElements[n.Data] {
			sb.WriteByte('\n')
		}
	}

	walk(root)

	lines := strings.Split(sb.String(), "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		if line = NormalizeWhitespace(line); line != "" {
			out = append(out, line)
		}
	}

	return strings.Join(out, "\n")
}

// CleanText strips markup, normalizes to NFC and collapses whitespace.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	if strings.ContainsRune(text, '<') {
		text = StripHTMLTags(text)
	} else {
		text = html.UnescapeString(text)
	}

	return NormalizeWhitespace(norm.NFC.String(text))
}

// NormalizeWhitespace collapses runs of whitespace into single spaces.
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Truncate shortens text to at most maxRunes runes, preferring a word boundary,
// and marks the cut with an ellipsis.
func Truncate(text string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:maxRunes-1])

	if !unicode.IsSpace(runes[maxRunes-1]) {
		if idx := strings.LastIndexByte(cut, ' '); idx > len(cut)/2 {
			cut = cut[:idx]
		}
	}

	return strings.TrimRight(cut, " ,;:-") + ellipsis
}

// TruncateBytes shortens text to at most maxRunes runes without any marker.
func TruncateBytes(text string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}

	return string([]rune(text)[:maxRunes])
}
