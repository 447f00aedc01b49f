package db

import "time"

// Startup connection backoff.
const (
	maxConnectionAttempts    = 8
	connectInitialDelay      = time.Second
	connectBackoffMultiplier = 2
	connectMaxDelay          = 15 * time.Second
)

// Database pool default constants
const (
	defaultMaxConns          int32         = 10
	defaultMinConns          int32         = 2
	defaultMaxConnIdleTime   time.Duration = 30 * time.Minute
	defaultMaxConnLifetime   time.Duration = time.Hour
	defaultHealthCheckPeriod time.Duration = time.Minute
)

const (
	// maxSourceErrorLength bounds the stored last_error text of a source.
	maxSourceErrorLength = 500

	// noLimit disables the LIMIT of window queries.
	noLimit = 0
)
