package config

import "time"

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	PostgresDSN       string        `env:"POSTGRES_DSN,required"`
	MaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	MinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"2"`
	MaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	MaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	HealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

// CacheConfig holds article text cache settings. An empty RedisAddress selects the in-process cache.
type CacheConfig struct {
	ArticleTTL    time.Duration `env:"ARTICLE_CACHE_TTL" envDefault:"6h"`
	RedisAddress  string        `env:"REDIS_ADDRESS" envDefault:""`
	RedisPassword string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string        `env:"REDIS_KEY_PREFIX" envDefault:"feed-digest:article:"`
}

// FetchConfig holds article fetch settings.
type FetchConfig struct {
	Concurrency int           `env:"FETCH_CONCURRENCY" envDefault:"3"`
	Timeout     time.Duration `env:"FETCH_TIMEOUT" envDefault:"8s"`
	MaxLength   int           `env:"FETCH_MAX_LENGTH" envDefault:"12000"`
	RPS         float64       `env:"FETCH_RPS" envDefault:"4"`
	SkipHosts   string        `env:"FETCH_SKIP_HOSTS" envDefault:""`
	UserAgent   string        `env:"FETCH_USER_AGENT" envDefault:"FeedDigest/1.0 (+digest builder)"`
}

// LLMConfig holds LLM provider settings.
type LLMConfig struct {
	Enabled bool `env:"LLM_ENABLED" envDefault:"true"`

	// Primary OpenAI
	APIKey string `env:"LLM_API_KEY"`
	Model  string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`

	// Alternative providers
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY" envDefault:""`
	AnthropicModel  string `env:"ANTHROPIC_MODEL" envDefault:"claude-haiku-4-5"`
	GoogleAPIKey    string `env:"GOOGLE_API_KEY" envDefault:""`
	GoogleModel     string `env:"GOOGLE_MODEL" envDefault:"gemini-2.5-flash-lite"`

	Timeout          time.Duration `env:"LLM_TIMEOUT" envDefault:"45s"`
	RateLimitRPS     float64       `env:"LLM_RATE_LIMIT_RPS" envDefault:"1"`
	DailyQuota       int           `env:"LLM_DAILY_QUOTA" envDefault:"200"`
	CircuitThreshold int           `env:"LLM_CIRCUIT_THRESHOLD" envDefault:"5"`
	CircuitTimeout   time.Duration `env:"LLM_CIRCUIT_TIMEOUT" envDefault:"1m"`
	Temperature      float64       `env:"LLM_TEMPERATURE" envDefault:"0.2"`
	MaxTokens        int           `env:"LLM_MAX_TOKENS" envDefault:"1024"`
}

// SummaryConfig holds summarization settings.
type SummaryConfig struct {
	BatchSize       int    `env:"SUMMARY_BATCH_SIZE" envDefault:"1"`
	MinContentChars int    `env:"SUMMARY_MIN_CONTENT_CHARS" envDefault:"200"`
	MaxChars        int    `env:"SUMMARY_MAX_CHARS" envDefault:"320"`
	LLMInputChars   int    `env:"SUMMARY_LLM_INPUT_CHARS" envDefault:"4000"`
	MissingNotice   string `env:"SUMMARY_MISSING_NOTICE" envDefault:"No preview available. Open the link to read the full article."`
}

// DigestConfig holds digest build and schedule settings.
type DigestConfig struct {
	MaxItemsPerSource int           `env:"DIGEST_MAX_ITEMS_PER_SOURCE" envDefault:"10"`
	Window            time.Duration `env:"DIGEST_WINDOW" envDefault:"24h"`
	Cron              string        `env:"DIGEST_CRON" envDefault:"0 8 * * *"`
	OverviewSourceCap int           `env:"DIGEST_OVERVIEW_SOURCE_CAP" envDefault:"5"`
	DefaultTenant     string        `env:"DIGEST_DEFAULT_TENANT" envDefault:""`
}

// IngestConfig holds feed polling settings.
type IngestConfig struct {
	PollInterval time.Duration `env:"INGEST_POLL_INTERVAL" envDefault:"15m"`
	FeedTimeout  time.Duration `env:"INGEST_FEED_TIMEOUT" envDefault:"20s"`
	MaxItems     int           `env:"INGEST_MAX_ITEMS_PER_FEED" envDefault:"50"`
	Retention    time.Duration `env:"INGEST_RETENTION" envDefault:"720h"`
	UserAgent    string        `env:"INGEST_USER_AGENT" envDefault:"FeedDigest/1.0 (+feed poller)"`
}

// RetryConfig holds the generic backoff settings for network and LLM calls.
type RetryConfig struct {
	Attempts     int           `env:"RETRY_ATTEMPTS" envDefault:"3"`
	InitialDelay time.Duration `env:"RETRY_INITIAL_DELAY" envDefault:"1s"`
	Multiplier   float64       `env:"RETRY_MULTIPLIER" envDefault:"2"`
	MaxDelay     time.Duration `env:"RETRY_MAX_DELAY" envDefault:"10s"`
}
