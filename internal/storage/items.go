package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/feed-digest/internal/core/domain"
)

const (
	errListItems  = "list items in window: %w"
	errScanItem   = "scan item: %w"
	errUpsertItem = "upsert items: %w"
	errPruneItems = "prune items: %w"
)

// ListItemsInWindow returns items of a source published in [start, end),
// most recent first. Items without a publication date are placed by their
// fetch time. A non-positive maxCount returns every item.
func (db *DB) ListItemsInWindow(ctx context.Context, sourceID string, start, end time.Time, maxCount int) ([]domain.FeedItem, error) {
	limit := pgtype.Int4{Int32: safeIntToInt32(maxCount), Valid: maxCount > noLimit}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, source_id, title, url, snippet, published_at, fetched_at
		FROM items
		WHERE source_id = $1
		  AND COALESCE(published_at, fetched_at) >= $2
		  AND COALESCE(published_at, fetched_at) < $3
		ORDER BY COALESCE(published_at, fetched_at) DESC, id
		LIMIT $4
	`, toUUID(sourceID), toTimestamptz(start), toTimestamptz(end), limit)
	if err != nil {
		return nil, fmt.Errorf(errListItems, err)
	}
	defer rows.Close()

	var items []domain.FeedItem

	for rows.Next() {
		var (
			id, source  pgtype.UUID
			item        domain.FeedItem
			snippet     pgtype.Text
			publishedAt pgtype.Timestamptz
			fetchedAt   pgtype.Timestamptz
		)

		if err := rows.Scan(&id, &source, &item.Title, &item.URL, &snippet, &publishedAt, &fetchedAt); err != nil {
			return nil, fmt.Errorf(errScanItem, err)
		}

		item.ID = fromUUID(id)
		item.SourceID = fromUUID(source)
		item.Snippet = fromText(snippet)
		item.PublishedAt = fromTimestamptzPtr(publishedAt)
		item.FetchedAt = fromTimestamptz(fetchedAt)

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(errListItems, err)
	}

	return items, nil
}

// UpsertItems stores the items of one poll. Items are unique per source and
// URL; a repeated item refreshes its title and snippet but keeps its first
// fetch time. It returns the number of newly inserted items.
func (db *DB) UpsertItems(ctx context.Context, sourceID string, items []domain.FeedItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}

	for _, item := range items {
		fetchedAt := item.FetchedAt
		if fetchedAt.IsZero() {
			fetchedAt = time.Now()
		}

		batch.Queue(`
			INSERT INTO items (source_id, title, url, snippet, published_at, fetched_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (source_id, url)
			DO UPDATE SET
				title = EXCLUDED.title,
				snippet = COALESCE(EXCLUDED.snippet, items.snippet),
				published_at = COALESCE(items.published_at, EXCLUDED.published_at)
			RETURNING (xmax = 0)
		`, toUUID(sourceID), SanitizeUTF8(item.Title), item.URL, toText(item.Snippet),
			toTimestamptzPtr(item.PublishedAt), toTimestamptz(fetchedAt))
	}

	results := db.Pool.SendBatch(ctx, batch)

	defer func() {
		_ = results.Close()
	}()

	inserted := 0

	for range items {
		var isNew bool
		if err := results.QueryRow().Scan(&isNew); err != nil {
			return inserted, fmt.Errorf(errUpsertItem, err)
		}

		if isNew {
			inserted++
		}
	}

	return inserted, nil
}

// PruneItemsBefore deletes items fetched before cutoff and returns how many were removed.
func (db *DB) PruneItemsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM items WHERE fetched_at < $1`, toTimestamptz(cutoff))
	if err != nil {
		return 0, fmt.Errorf(errPruneItems, err)
	}

	return tag.RowsAffected(), nil
}
