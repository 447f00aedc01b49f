package observability

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/lueurxax/feed-digest/internal/core/ports"
)

var _ ports.MetricsSink = (*Recorder)(nil)

// enrichmentResultKeys maps enrichment event metadata to result labels.
var enrichmentResultKeys = map[string]string{
	"skipped":     "skipped",
	"cache_hits":  "cache_hit",
	"fetched":     "fetched",
	"timeouts":    "timeout",
	"failed":      "failed",
	"error_pages": "error_page",
}

// Recorder is the production MetricsSink. Every event is counted and logged;
// known event types also feed their dedicated Prometheus series.
type Recorder struct {
	logger *zerolog.Logger
}

func NewRecorder(logger *zerolog.Logger) *Recorder {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Recorder{logger: logger}
}

func (r *Recorder) Record(_ context.Context, event ports.MetricEvent) {
	Events.WithLabelValues(string(event.Type), event.Operation, event.Status).Inc()

	switch event.Type {
	case ports.MetricTypeEnrichment:
		for key, label := range enrichmentResultKeys {
			if n := metaInt(event.Metadata, key); n > 0 {
				EnrichmentResults.WithLabelValues(label).Add(float64(n))
			}
		}
	case ports.MetricTypeSummary:
		SummaryRuns.WithLabelValues(event.Metadata["fallback_reason"]).Inc()

		failed := metaInt(event.Metadata, "batches_failed")
		empty := metaInt(event.Metadata, "batches_empty")
		succeeded := metaInt(event.Metadata, "batches") - failed - empty

		addPositive(SummaryBatches.WithLabelValues("failed"), failed)
		addPositive(SummaryBatches.WithLabelValues("empty"), empty)
		addPositive(SummaryBatches.WithLabelValues("succeeded"), succeeded)
	case ports.MetricTypeDigest:
		DigestsCreated.WithLabelValues(event.Status).Inc()

		if event.Status == ports.MetricStatusSuccess {
			DigestItems.Observe(float64(metaInt(event.Metadata, "items")))
		}
	case ports.MetricTypeQueue, ports.MetricTypeIngest, ports.MetricTypeBuild:
	}

	logEvent := r.logger.Debug()
	if event.Status == ports.MetricStatusFailure {
		logEvent = r.logger.Warn()
	}

	logEvent.
		Str("type", string(event.Type)).
		Str("operation", event.Operation).
		Str("status", event.Status).
		Interface("metadata", event.Metadata).
		Msg("metric event")
}

func metaInt(meta map[string]string, key string) int {
	n, err := strconv.Atoi(meta[key])
	if err != nil {
		return 0
	}

	return n
}

func addPositive(c interface{ Add(float64) }, n int) {
	if n > 0 {
		c.Add(float64(n))
	}
}
