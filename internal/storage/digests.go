package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	coreerrors "github.com/lueurxax/feed-digest/internal/core/errors"
)

// Digest is a stored digest rendering.
type Digest struct {
	ID          string
	ChannelID   string
	WindowStart time.Time
	WindowEnd   time.Time
	Rendered    string
	CreatedAt   time.Time
}

// CreateDigestRecord stores a rendered digest and returns its ID.
func (db *DB) CreateDigestRecord(ctx context.Context, channelID string, start, end time.Time, rendered string) (string, error) {
	var id pgtype.UUID

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO digests (channel_id, window_start, window_end, rendered)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, channelID, toTimestamptz(start), toTimestamptz(end), SanitizeUTF8(rendered)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create digest record: %w", err)
	}

	return fromUUID(id), nil
}

// GetLatestDigest returns the most recently stored digest of a channel.
func (db *DB) GetLatestDigest(ctx context.Context, channelID string) (*Digest, error) {
	var (
		id        pgtype.UUID
		d         Digest
		start     pgtype.Timestamptz
		end       pgtype.Timestamptz
		createdAt pgtype.Timestamptz
	)

	err := db.Pool.QueryRow(ctx, `
		SELECT id, channel_id, window_start, window_end, rendered, created_at
		FROM digests
		WHERE channel_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, channelID).Scan(&id, &d.ChannelID, &start, &end, &d.Rendered, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("latest digest of %s: %w", channelID, coreerrors.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("get latest digest: %w", err)
	}

	d.ID = fromUUID(id)
	d.WindowStart = fromTimestamptz(start)
	d.WindowEnd = fromTimestamptz(end)
	d.CreatedAt = fromTimestamptz(createdAt)

	return &d, nil
}
