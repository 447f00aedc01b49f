package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/feed-digest/internal/core/domain"
	"github.com/lueurxax/feed-digest/internal/core/links"
)

const (
	errListSources      = "list sources: %w"
	errScanSource       = "scan source: %w"
	errAddSource        = "add source: %w"
	errRecordSourceErr  = "record source error: %w"
	errClearSourceError = "clear source error: %w"
	errListChannels     = "list channels: %w"

	sourceColumns = `id, channel_id, name, feed_url, enabled, last_error, last_error_at`
)

// ListEnabledSources returns the enabled sources of a channel, oldest first.
func (db *DB) ListEnabledSources(ctx context.Context, channelID string) ([]domain.Source, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+sourceColumns+`
		FROM sources
		WHERE channel_id = $1 AND enabled
		ORDER BY created_at, id
	`, channelID)
	if err != nil {
		return nil, fmt.Errorf(errListSources, err)
	}

	return collectSources(rows)
}

// ListAllEnabledSources returns every enabled source across channels.
func (db *DB) ListAllEnabledSources(ctx context.Context) ([]domain.Source, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+sourceColumns+`
		FROM sources
		WHERE enabled
		ORDER BY channel_id, created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf(errListSources, err)
	}

	return collectSources(rows)
}

func collectSources(rows pgx.Rows) ([]domain.Source, error) {
	defer rows.Close()

	var sources []domain.Source

	for rows.Next() {
		var (
			id          pgtype.UUID
			s           domain.Source
			lastError   pgtype.Text
			lastErrorAt pgtype.Timestamptz
		)

		if err := rows.Scan(&id, &s.ChannelID, &s.Name, &s.FeedURL, &s.Enabled, &lastError, &lastErrorAt); err != nil {
			return nil, fmt.Errorf(errScanSource, err)
		}

		s.ID = fromUUID(id)
		s.LastError = fromText(lastError)
		s.LastErrorAt = fromTimestamptzPtr(lastErrorAt)

		sources = append(sources, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(errListSources, err)
	}

	return sources, nil
}

// AddSource registers a feed for a channel. Re-adding an existing feed
// re-enables it and updates its name. The feed URL is stored canonicalized.
func (db *DB) AddSource(ctx context.Context, channelID, name, feedURL string) (string, error) {
	var id pgtype.UUID

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO sources (channel_id, name, feed_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (channel_id, feed_url)
		DO UPDATE SET enabled = TRUE, name = COALESCE(NULLIF(EXCLUDED.name, ''), sources.name)
		RETURNING id
	`, channelID, SanitizeUTF8(strings.TrimSpace(name)), links.Canonical(feedURL)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf(errAddSource, err)
	}

	return fromUUID(id), nil
}

// RecordSourceError stores the failure of the latest poll of a source.
func (db *DB) RecordSourceError(ctx context.Context, sourceID, message string, at time.Time) error {
	if len(message) > maxSourceErrorLength {
		message = message[:maxSourceErrorLength]
	}

	_, err := db.Pool.Exec(ctx, `
		UPDATE sources
		SET last_error = $2, last_error_at = $3, last_polled_at = $3
		WHERE id = $1
	`, toUUID(sourceID), toText(message), toTimestamptz(at))
	if err != nil {
		return fmt.Errorf(errRecordSourceErr, err)
	}

	return nil
}

// ClearSourceError marks the latest poll of a source as successful.
func (db *DB) ClearSourceError(ctx context.Context, sourceID string, at time.Time) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE sources
		SET last_error = NULL, last_error_at = NULL, last_polled_at = $2
		WHERE id = $1
	`, toUUID(sourceID), toTimestamptz(at))
	if err != nil {
		return fmt.Errorf(errClearSourceError, err)
	}

	return nil
}

// ListChannels returns the channels that have at least one enabled source.
func (db *DB) ListChannels(ctx context.Context) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT DISTINCT channel_id
		FROM sources
		WHERE enabled
		ORDER BY channel_id
	`)
	if err != nil {
		return nil, fmt.Errorf(errListChannels, err)
	}

	channels, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf(errListChannels, err)
	}

	return channels, nil
}
