// Package repair recovers per-URL summaries from LLM responses that are meant
// to be JSON but often are not quite.
//
// Parse tries four tiers in order and the first one that yields a requested
// URL wins:
//
//  1. ExtractBlock + strict decode
//  2. RepairStructure (stray quotes, raw control characters, trailing commas)
//  3. AutoClose (truncated output)
//  4. ExtractSummaries (pattern scan for url/summary pairs)
package repair

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	coreerrors "github.com/lueurxax/feed-digest/internal/core/errors"
	"github.com/lueurxax/feed-digest/internal/core/links"
)

// Tier identifies the repair step that produced a result.
type Tier int

const (
	TierNone Tier = iota
	TierDirect
	TierRepaired
	TierClosed
	TierPattern
)

func (t Tier) String() string {
	switch t {
	case TierDirect:
		return "direct"
	case TierRepaired:
		return "repaired"
	case TierClosed:
		return "closed"
	case TierPattern:
		return "pattern"
	default:
		return "none"
	}
}

// Result maps canonical URLs to summaries.
type Result map[string]string

// Parse recovers summaries from raw model output. urls are the URLs the
// request asked about. A tier only wins when it yields a summary for at least
// one of them; a well-formed document without one falls through to the next
// tier, so the pattern scan still gets its chance.
func Parse(raw string, urls []string) (Result, Tier, error) {
	wanted := make(map[string]bool, len(urls))
	for _, u := range urls {
		wanted[links.Canonical(u)] = true
	}

	blocks := candidateBlocks(raw)

	for _, block := range blocks {
		if result, err := decode(block); err == nil && covers(result, wanted) {
			return result, TierDirect, nil
		}
	}

	for _, block := range blocks {
		if result, err := decode(RepairStructure(block)); err == nil && covers(result, wanted) {
			return result, TierRepaired, nil
		}
	}

	// Truncated output loses its closing brackets, so close from the first opening one.
	if result, err := decode(AutoClose(RepairStructure(openSpan(raw)))); err == nil && covers(result, wanted) {
		return result, TierClosed, nil
	}

	if result := ExtractSummaries(raw, urls); len(result) > 0 {
		return result, TierPattern, nil
	}

	return nil, TierNone, fmt.Errorf("%w: no tier recovered a summary", coreerrors.ErrParseFailure)
}

// covers reports whether result holds a summary for a requested URL. With no
// URLs requested any summary counts.
func covers(result Result, wanted map[string]bool) bool {
	if len(wanted) == 0 {
		return len(result) > 0
	}

	for key := range result {
		if wanted[key] {
			return true
		}
	}

	return false
}

// decode accepts the shapes models actually answer with: {"items": [...]},
// an object holding any array of items, a top-level array, or a single bare
// {"url", "summary"} object.
func decode(block string) (Result, error) {
	var doc any

	if err := json.Unmarshal([]byte(block), &doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	result := make(Result)
	collect(doc, result)

	return result, nil
}

func collect(doc any, result Result) {
	switch v := doc.(type) {
	case []any:
		for _, each := range v {
			if obj, ok := each.(map[string]any); ok {
				addItem(obj, result)
			}
		}
	case map[string]any:
		if addItem(v, result) {
			return
		}

		if items, ok := v["items"].([]any); ok {
			collect(items, result)

			return
		}

		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}

		sort.Strings(keys)

		for _, key := range keys {
			if arr, ok := v[key].([]any); ok {
				collect(arr, result)
			}
		}
	}
}

func addItem(obj map[string]any, result Result) bool {
	rawURL, _ := obj["url"].(string)
	summary, _ := obj["summary"].(string)

	summary = strings.TrimSpace(summary)
	if rawURL == "" || summary == "" {
		return false
	}

	result[links.Canonical(rawURL)] = summary

	return true
}

// ExtractBlock isolates the JSON document in raw: the body of a fenced code
// block when there is one, then the span from the first opening bracket to
// the last matching closing one. A top-level array is kept whole. Without a
// closing bracket the span runs to the end of the input.
func ExtractBlock(raw string) string {
	text := fencedBody(raw)

	open, closing := byte('{'), byte('}')

	first := strings.IndexAny(text, "{[")
	if first < 0 {
		return strings.TrimSpace(text)
	}

	if text[first] == '[' {
		open, closing = '[', ']'
	}

	return span(text, open, closing)
}

// candidateBlocks lists ExtractBlock and, when it differs, the object span.
// Prose such as "[1]" before the JSON object would otherwise hide it.
func candidateBlocks(raw string) []string {
	block := ExtractBlock(raw)

	object := fencedBody(raw)
	if strings.IndexByte(object, '{') >= 0 {
		object = span(object, '{', '}')
	} else {
		object = block
	}

	if object == block {
		return []string{block}
	}

	return []string{block, object}
}

func span(text string, open, closing byte) string {
	first := strings.IndexByte(text, open)
	if first < 0 {
		return strings.TrimSpace(text)
	}

	last := strings.LastIndexByte(text, closing)
	if last < first {
		return strings.TrimSpace(text[first:])
	}

	return text[first : last+1]
}

// openSpan returns everything from the first opening bracket to the end of
// the block.
func openSpan(raw string) string {
	text := fencedBody(raw)

	first := strings.IndexAny(text, "{[")
	if first < 0 {
		return strings.TrimSpace(text)
	}

	return strings.TrimSpace(text[first:])
}

func fencedBody(raw string) string {
	text := raw

	if start := strings.Index(text, "```"); start >= 0 {
		body := text[start+3:]

		// Skip the language tag line.
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.Contains(body[:nl], "{") {
			body = body[nl+1:]
		}

		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}

		text = body
	}

	return text
}
