package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ItemsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_items_ingested_total",
		Help: "The total number of feed items stored by the poller",
	}, []string{"source"})

	IngestPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_ingest_polls_total",
		Help: "The total number of source polls",
	}, []string{"status"})

	// Build queue metrics
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "digest_queue_depth",
		Help: "Number of build jobs waiting in the queue",
	})

	QueueRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "digest_queue_running",
		Help: "Whether a build job is currently running (0=no, 1=yes)",
	})

	QueueJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_queue_jobs_total",
		Help: "Total number of finished build jobs",
	}, []string{"status"})

	QueueWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "digest_queue_wait_seconds",
		Help:    "Time a build job spent queued before it started",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 300},
	})

	QueueJobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "digest_queue_job_duration_seconds",
		Help:    "Duration of build jobs",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	})

	BuildStage = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_build_stage_total",
		Help: "Number of times a build entered each stage",
	}, []string{"stage"})

	// Enrichment metrics
	EnrichmentResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_enrichment_results_total",
		Help: "Outcome of article text enrichment per item",
	}, []string{"result"})

	EnrichmentDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "digest_enrichment_duration_seconds",
		Help:    "Duration of one enrichment pass",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	// Summary metrics
	SummaryRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_summary_runs_total",
		Help: "Summarization runs by fallback reason",
	}, []string{"fallback_reason"})

	SummaryBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_summary_batches_total",
		Help: "LLM summary batches by outcome",
	}, []string{"outcome"})

	SummaryRepairs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_summary_repairs_total",
		Help: "LLM responses by the JSON repair tier that parsed them",
	}, []string{"tier"})

	// Digest metrics
	DigestsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_digests_created_total",
		Help: "Number of digest records persisted",
	}, []string{"status"})

	DigestItems = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "digest_items_per_digest",
		Help:    "Number of items in a persisted digest",
		Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 200},
	})

	// Generic event counter for sinks that only know the event shape.
	Events = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_events_total",
		Help: "Operational events by type, operation and status",
	}, []string{"type", "operation", "status"})

	// LLM token usage metrics
	LLMTokensPrompt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_llm_tokens_prompt_total",
		Help: "Total number of prompt tokens used",
	}, []string{"provider", "model"})

	LLMTokensCompletion = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_llm_tokens_completion_total",
		Help: "Total number of completion tokens used",
	}, []string{"provider", "model"})

	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_llm_requests_total",
		Help: "Total number of LLM requests",
	}, []string{"provider", "model", "status"})

	LLMQuotaRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "digest_llm_quota_rejections_total",
		Help: "LLM calls refused because the tenant's daily quota was used up",
	})

	// LLM fallback and circuit breaker metrics
	LLMFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_llm_fallbacks_total",
		Help: "Total number of LLM fallback events",
	}, []string{"from_provider", "to_provider"})

	LLMCircuitBreakerOpens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_llm_circuit_breaker_opens_total",
		Help: "Total number of times LLM circuit breaker opened",
	}, []string{"provider"})

	LLMCircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "digest_llm_circuit_breaker_state",
		Help: "Current state of LLM circuit breaker (0=closed, 1=open)",
	}, []string{"provider"})

	LLMRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "digest_llm_request_latency_seconds",
		Help:    "Latency of LLM requests by provider",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"provider", "model"})

	LLMProviderAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "digest_llm_provider_available",
		Help: "Whether LLM provider is currently available (0=no, 1=yes)",
	}, []string{"provider"})
)
