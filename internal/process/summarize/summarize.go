// Package summarize produces the per-item summaries of a digest.
//
// Items with enough usable text are sent to the LLM in batches. Every batch is
// isolated: a failure degrades only its own items, which fall back to an
// extractive summary. Items without usable text get a fixed notice. The
// outcome of the whole run is reported as a single domain.SummaryMeta.
package summarize

import (
	"context"
	"errors"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/lueurxax/feed-digest/internal/core/domain"
	coreerrors "github.com/lueurxax/feed-digest/internal/core/errors"
	"github.com/lueurxax/feed-digest/internal/core/links"
	"github.com/lueurxax/feed-digest/internal/core/ports"
	"github.com/lueurxax/feed-digest/internal/platform/htmlutils"
	"github.com/lueurxax/feed-digest/internal/process/repair"
)

// Defaults applied to zero Options fields. DefaultMissingNotice replaces the
// summary of an item with no usable text.
const (
	DefaultBatchSize       = 1
	DefaultMinContentChars = 200
	DefaultMaxChars        = 320
	DefaultLLMInputChars   = 4000
	DefaultMissingNotice   = "No preview available. Open the link to read the full article."
	DefaultTemperature     = 0.2
	DefaultMaxTokens       = 1024

	logKeyBatch = "batch"
)

// Options configures a Summarizer.
type Options struct {
	Enabled         bool
	BatchSize       int
	MinContentChars int
	MaxChars        int
	LLMInputChars   int
	MissingNotice   string
	Temperature     float64
	MaxTokens       int
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}

	if o.MinContentChars <= 0 {
		o.MinContentChars = DefaultMinContentChars
	}

	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxChars
	}

	if o.LLMInputChars <= 0 {
		o.LLMInputChars = DefaultLLMInputChars
	}

	if o.MissingNotice == "" {
		o.MissingNotice = DefaultMissingNotice
	}

	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}

	return o
}

// Summarizer writes short item summaries with an LLM, falling back to
// extractive excerpts.
type Summarizer struct {
	llm     ports.LLMCaller
	metrics ports.MetricsSink
	logger  *zerolog.Logger
	opts    Options
}

// New creates a Summarizer. metrics may be nil.
func New(llm ports.LLMCaller, metrics ports.MetricsSink, opts Options, logger *zerolog.Logger) *Summarizer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Summarizer{
		llm:     llm,
		metrics: metrics,
		logger:  logger,
		opts:    opts.withDefaults(),
	}
}

type candidate struct {
	index int
	item  *domain.ContentItem
	text  string
}

// batchOutcome tallies how the LLM batches of one run ended.
type batchOutcome struct {
	total      int
	succeeded  int
	failed     int
	empty      int
	incomplete bool
	// lastErr is the text of the most recent batch error.
	lastErr string
}

// Summarize fills Summary and HasUsableContent of every item in place and
// reports how the summaries were produced.
func (s *Summarizer) Summarize(ctx context.Context, tenantID string, items []domain.ContentItem) domain.SummaryMeta {
	eligible, texts := s.classify(items)

	meta := domain.SummaryMeta{
		LLMEnabled:            s.opts.Enabled,
		LLMItems:              len(eligible),
		SkippedLLMItems:       len(items) - len(eligible),
		FetchedFullText:       countEnriched(items),
		MissingContentSources: missingSources(items),
	}

	var outcome batchOutcome

	switch {
	case !s.opts.Enabled:
		meta.FallbackReason = domain.FallbackDisabled
	case s.llm == nil || !s.llm.Configured():
		meta.FallbackReason = domain.FallbackMissingConfig
	case len(eligible) == 0:
		meta.FallbackReason = domain.FallbackNoFullText
	default:
		outcome = s.runBatches(ctx, tenantID, eligible)
		meta.LLMUsed = outcome.succeeded > 0
		meta.FallbackReason = outcome.reason()
	}

	s.applyFallbacks(items, texts)
	s.record(ctx, meta, outcome)

	return meta
}

// classify marks usable items and returns them with their cleaned text.
func (s *Summarizer) classify(items []domain.ContentItem) ([]candidate, []string) {
	texts := make([]string, len(items))

	var eligible []candidate

	for i := range items {
		texts[i] = usableText(items[i], s.opts.MinContentChars)
		items[i].HasUsableContent = runeLen(texts[i]) >= s.opts.MinContentChars

		if items[i].HasUsableContent {
			eligible = append(eligible, candidate{index: i, item: &items[i], text: texts[i]})
		}
	}

	return eligible, texts
}

func (s *Summarizer) runBatches(ctx context.Context, tenantID string, eligible []candidate) batchOutcome {
	var (
		outcome       batchOutcome
		quotaExceeded bool
	)

	for start := 0; start < len(eligible); start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, len(eligible))
		batch := eligible[start:end]
		batchNo := start/s.opts.BatchSize + 1

		outcome.total++

		if quotaExceeded || ctx.Err() != nil {
			outcome.failed++
			continue
		}

		matched, err := s.summarizeBatch(ctx, tenantID, batch)

		switch {
		case errors.Is(err, coreerrors.ErrParseFailure):
			s.logger.Warn().Err(err).Int(logKeyBatch, batchNo).Msg("summary batch unparseable")

			outcome.empty++
			outcome.lastErr = err.Error()
		case err != nil:
			s.logger.Warn().Err(err).Int(logKeyBatch, batchNo).Msg("summary batch failed")

			outcome.failed++
			outcome.lastErr = err.Error()

			if errors.Is(err, coreerrors.ErrQuotaExceeded) {
				quotaExceeded = true
			}
		case matched == 0:
			outcome.empty++
		default:
			outcome.succeeded++

			if matched < len(batch) {
				outcome.incomplete = true
			}
		}
	}

	return outcome
}

// summarizeBatch asks the LLM about one batch and stores the summaries it
// returned. It reports how many items of the batch received one.
func (s *Summarizer) summarizeBatch(ctx context.Context, tenantID string, batch []candidate) (int, error) {
	raw, err := s.llm.Call(ctx, ports.CallRequest{
		TenantID:     tenantID,
		SystemPrompt: systemPrompt(s.opts.MaxChars),
		Messages: []ports.Message{{
			Role:    ports.RoleUser,
			Content: buildUserPrompt(batch, s.opts.LLMInputChars),
		}},
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	})
	if err != nil {
		return 0, err
	}

	result, tier, err := repair.Parse(raw, batchURLs(batch))
	if err != nil {
		return 0, err
	}

	if tier != repair.TierDirect {
		s.logger.Debug().Str("tier", tier.String()).Msg("summary response repaired")
	}

	matched := 0

	for _, c := range batch {
		summary := htmlutils.CleanText(result[links.Canonical(c.item.URL)])
		if summary == "" {
			continue
		}

		c.item.Summary = htmlutils.Truncate(summary, s.opts.MaxChars)
		matched++
	}

	return matched, nil
}

// applyFallbacks gives every item still without a summary an extractive one,
// or the missing-content notice when it has nothing usable.
func (s *Summarizer) applyFallbacks(items []domain.ContentItem, texts []string) {
	for i := range items {
		if items[i].Summary != "" {
			continue
		}

		if items[i].HasUsableContent {
			if summary := Extractive(texts[i], s.opts.MaxChars); summary != "" {
				items[i].Summary = summary
				continue
			}
		}

		items[i].Summary = s.opts.MissingNotice
	}
}

func (o batchOutcome) reason() domain.FallbackReason {
	switch {
	case o.failed == o.total:
		return domain.FallbackFailed
	case o.succeeded == 0:
		return domain.FallbackEmpty
	case o.failed > 0 || o.empty > 0 || o.incomplete:
		return domain.FallbackPartial
	default:
		return domain.FallbackNone
	}
}

func (s *Summarizer) record(ctx context.Context, meta domain.SummaryMeta, outcome batchOutcome) {
	if s.metrics == nil {
		return
	}

	status := ports.MetricStatusSuccess
	if meta.FallbackReason != domain.FallbackNone {
		status = ports.MetricStatusDegraded
	}

	metadata := map[string]string{
		"fallback_reason":   string(meta.FallbackReason),
		"llm_items":         strconv.Itoa(meta.LLMItems),
		"skipped_llm_items": strconv.Itoa(meta.SkippedLLMItems),
		"batches":           strconv.Itoa(outcome.total),
		"batches_failed":    strconv.Itoa(outcome.failed),
		"batches_empty":     strconv.Itoa(outcome.empty),
	}

	if outcome.lastErr != "" {
		metadata["error"] = outcome.lastErr
	}

	s.metrics.Record(ctx, ports.MetricEvent{
		Type:      ports.MetricTypeSummary,
		Operation: "summarize",
		Status:    status,
		Metadata:  metadata,
	})
}

func countEnriched(items []domain.ContentItem) int {
	count := 0

	for _, item := range items {
		if item.Enriched {
			count++
		}
	}

	return count
}

// missingSources lists, in first-seen order, the sources of items with nothing usable.
func missingSources(items []domain.ContentItem) []string {
	seen := make(map[string]bool)

	var sources []string

	for _, item := range items {
		if item.HasUsableContent || item.Source == "" || seen[item.Source] {
			continue
		}

		seen[item.Source] = true
		sources = append(sources, item.Source)
	}

	return sources
}
