// Package digest turns the summarized items of one build into a DigestResult
// and persists its rendering.
package digest

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/lueurxax/feed-digest/internal/core/domain"
	coreerrors "github.com/lueurxax/feed-digest/internal/core/errors"
	"github.com/lueurxax/feed-digest/internal/core/links"
	"github.com/lueurxax/feed-digest/internal/core/ports"
)

// AssembleInput is everything the assembler needs from earlier build stages.
type AssembleInput struct {
	Request       domain.BuildRequest
	Items         []domain.ContentItem
	FailedSources []domain.SourceFailure
	Meta          domain.SummaryMeta
}

// Options configures an Assembler.
type Options struct {
	// SourceCap bounds the updated and failed source lists of the overview.
	SourceCap int
}

// Assembler builds and persists the DigestResult of a build.
type Assembler struct {
	store   ports.DigestStore
	metrics ports.MetricsSink
	opts    Options
	logger  *zerolog.Logger
}

// New creates an Assembler. metrics may be nil.
func New(store ports.DigestStore, metrics ports.MetricsSink, opts Options, logger *zerolog.Logger) *Assembler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if opts.SourceCap <= 0 {
		opts.SourceCap = DefaultSourceCap
	}

	return &Assembler{
		store:   store,
		metrics: metrics,
		opts:    opts,
		logger:  logger,
	}
}

// Assemble dedups the items, renders the overview and persists the digest.
// A persistence failure is returned wrapped in errors.ErrPersistence.
func (a *Assembler) Assemble(ctx context.Context, in AssembleInput) (*domain.DigestResult, error) {
	items, duplicates := Dedup(in.Items)
	if duplicates > 0 {
		a.logger.Debug().
			Str(LogFieldChannelID, in.Request.ChannelID).
			Int(LogFieldDuplicate, duplicates).
			Msg("dropped duplicate items")
	}

	result := &domain.DigestResult{
		ChannelID:      in.Request.ChannelID,
		WindowStart:    in.Request.WindowStart,
		WindowEnd:      in.Request.WindowEnd,
		Items:          items,
		UpdatedSources: updatedSources(items),
		FailedSources:  in.FailedSources,
		Meta:           in.Meta,
	}
	result.Overview = renderOverview(result, a.opts.SourceCap)

	id, err := a.store.CreateDigestRecord(ctx, result.ChannelID, result.WindowStart, result.WindowEnd, Render(result))
	if err != nil {
		a.record(ctx, ports.MetricStatusFailure, map[string]string{
			"channel_id": result.ChannelID,
			"items":      strconv.Itoa(len(items)),
			"error":      err.Error(),
		})

		a.logger.Error().Err(err).Str(LogFieldChannelID, result.ChannelID).Msg("failed to persist digest")

		return nil, fmt.Errorf("%w: %w", coreerrors.ErrPersistence, err)
	}

	result.ID = id

	a.record(ctx, ports.MetricStatusSuccess, map[string]string{
		"channel_id": result.ChannelID,
		"digest_id":  id,
		"items":      strconv.Itoa(len(items)),
	})

	a.logger.Info().
		Str(LogFieldChannelID, result.ChannelID).
		Str(LogFieldDigestID, id).
		Int(LogFieldCount, len(items)).
		Msg("digest assembled")

	return result, nil
}

// Dedup keeps the first item of every canonical URL, preserving order. Items
// without a URL have no identity and are always kept.
func Dedup(items []domain.ContentItem) ([]domain.ContentItem, int) {
	seen := make(map[string]struct{}, len(items))
	result := make([]domain.ContentItem, 0, len(items))

	for _, item := range items {
		key := links.Canonical(item.URL)
		if key != "" {
			if _, dup := seen[key]; dup {
				continue
			}

			seen[key] = struct{}{}
		}

		result = append(result, item)
	}

	return result, len(items) - len(result)
}

// updatedSources counts items per source in first-seen order.
func updatedSources(items []domain.ContentItem) []domain.SourceUpdate {
	index := make(map[string]int)

	var updates []domain.SourceUpdate

	for _, item := range items {
		name := item.Source
		if name == "" {
			name = DefaultSourceLabel
		}

		if i, ok := index[name]; ok {
			updates[i].ItemCount++
			continue
		}

		index[name] = len(updates)
		updates = append(updates, domain.SourceUpdate{Name: name, ItemCount: 1})
	}

	return updates
}

func (a *Assembler) record(ctx context.Context, status string, metadata map[string]string) {
	if a.metrics == nil {
		return
	}

	a.metrics.Record(ctx, ports.MetricEvent{
		Type:      ports.MetricTypeDigest,
		Operation: OperationCreate,
		Status:    status,
		Metadata:  metadata,
	})
}
