package digest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lueurxax/feed-digest/internal/core/domain"
)

// fallbackNotes explains a degraded summary run to the reader.
var fallbackNotes = map[domain.FallbackReason]string{
	domain.FallbackDisabled:      "AI summaries are turned off, showing article excerpts",
	domain.FallbackMissingConfig: "AI summaries are not configured, showing article excerpts",
	domain.FallbackNoFullText:    "no article text was available for AI summaries",
	domain.FallbackEmpty:         "the AI returned no usable summaries, showing article excerpts",
	domain.FallbackFailed:        "AI summaries failed, showing article excerpts",
	domain.FallbackPartial:       "some summaries are article excerpts",
}

// describeWindow renders [start, end) in UTC.
func describeWindow(start, end time.Time) string {
	return start.UTC().Format(TimeFormatWindow) + " - " + end.UTC().Format(TimeFormatWindow)
}

// capList joins the first limit entries and appends "+N more" for the rest.
func capList(entries []string, limit int) string {
	if limit <= 0 || len(entries) <= limit {
		return strings.Join(entries, DigestSourceSeparator)
	}

	shown := append([]string(nil), entries[:limit]...)
	shown = append(shown, "+"+strconv.Itoa(len(entries)-limit)+" more")

	return strings.Join(shown, DigestSourceSeparator)
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}

	return plural
}

// renderOverview builds the human-readable summary of a digest: the window,
// the sources that contributed, the sources that failed and, when summaries
// were degraded, a short note.
func renderOverview(result *domain.DigestResult, sourceCap int) string {
	var sb strings.Builder

	sb.WriteString(DigestSeparatorLine)
	fmt.Fprintf(&sb, "%s Digest for %s\n", EmojiDigest, describeWindow(result.WindowStart, result.WindowEnd))
	sb.WriteString(DigestSeparatorLine)

	if len(result.Items) == 0 {
		sb.WriteString("No new items in this window.\n")
	} else {
		updated := make([]string, 0, len(result.UpdatedSources))
		for _, s := range result.UpdatedSources {
			updated = append(updated, fmt.Sprintf("%s (%d)", s.Name, s.ItemCount))
		}

		fmt.Fprintf(&sb, "%s %d new %s from %d %s: %s\n",
			EmojiSources,
			len(result.Items), pluralize(len(result.Items), "item", "items"),
			len(result.UpdatedSources), pluralize(len(result.UpdatedSources), "source", "sources"),
			capList(updated, sourceCap))
	}

	if len(result.FailedSources) > 0 {
		failed := make([]string, 0, len(result.FailedSources))
		for _, f := range result.FailedSources {
			if f.Reason == "" {
				failed = append(failed, f.Name)
				continue
			}

			failed = append(failed, fmt.Sprintf("%s (%s)", f.Name, f.Reason))
		}

		fmt.Fprintf(&sb, "%s Failed sources: %s\n", EmojiFailed, capList(failed, sourceCap))
	}

	if note, ok := fallbackNotes[result.Meta.FallbackReason]; ok && len(result.Items) > 0 {
		fmt.Fprintf(&sb, "%s Note: %s\n", EmojiNote, note)
	}

	if len(result.Meta.MissingContentSources) > 0 && len(result.Items) > 0 {
		fmt.Fprintf(&sb, "%s No readable text from: %s\n", EmojiNote, capList(result.Meta.MissingContentSources, sourceCap))
	}

	return strings.TrimRight(sb.String(), "\n")
}

// Render returns the full text of a digest: the overview followed by every
// item with its summary and link.
func Render(result *domain.DigestResult) string {
	var sb strings.Builder

	sb.WriteString(result.Overview)
	sb.WriteString("\n")

	for i, item := range result.Items {
		title := item.Title
		if title == "" {
			title = DefaultTitle
		}

		source := item.Source
		if source == "" {
			source = DefaultSourceLabel
		}

		fmt.Fprintf(&sb, "\n%d. %s\n", i+1, title)

		if item.Summary != "" {
			sb.WriteString("   ")
			sb.WriteString(item.Summary)
			sb.WriteString("\n")
		}

		fmt.Fprintf(&sb, DigestSourceVia+"\n", source+" "+EmojiBullet+" "+item.URL)
	}

	return strings.TrimRight(sb.String(), "\n")
}
