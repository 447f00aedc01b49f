package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrEmptyAddress is returned when Redis address is not configured.
var ErrEmptyAddress = errors.New("redis address is required")

// connectionTimeout is the timeout for verifying Redis connection.
const connectionTimeout = 5 * time.Second

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// Redis is an ArticleCache shared between processes. Redis enforces expiry,
// so an expired key is already gone when it is read.
// Redis errors are logged and reported as misses.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zerolog.Logger
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(cfg RedisConfig, logger *zerolog.Logger) (*Redis, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisWithClient(client, cfg.Prefix, cfg.TTL, logger), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, prefix string, ttl time.Duration, logger *zerolog.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Redis{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached text for url if present.
func (r *Redis) Get(ctx context.Context, url string) (string, bool) {
	text, err := r.client.Get(ctx, r.prefix+url).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn().Err(err).Str("url", url).Msg("article cache read failed")
		}

		return "", false
	}

	return text, true
}

// Set stores text for url with a fresh TTL.
func (r *Redis) Set(ctx context.Context, url, text string) {
	if err := r.client.Set(ctx, r.prefix+url, text, r.ttl).Err(); err != nil {
		r.logger.Warn().Err(err).Str("url", url).Msg("article cache write failed")
	}
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("closing redis client: %w", err)
	}

	return nil
}
