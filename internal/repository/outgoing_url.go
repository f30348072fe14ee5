package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/index-checker/internal/models"
)

// OutgoingURLRepository stores the locally tracked outgoing URL of each post.
// The value never leaves this database; WordPress has no field for it.
type OutgoingURLRepository struct {
	db *sqlx.DB
}

// NewOutgoingURLRepository creates an OutgoingURLRepository.
func NewOutgoingURLRepository(db *sqlx.DB) *OutgoingURLRepository {
	return &OutgoingURLRepository{db: db}
}

// Get returns the outgoing URL stored for a post.
func (r *OutgoingURLRepository) Get(ctx context.Context, siteID, postID int64) (string, error) {
	var value sql.NullString
	query := r.db.Rebind(`SELECT outgoing_url FROM wp_post_outgoing_urls WHERE wp_site_id = ? AND post_id = ?`)

	if err := r.db.GetContext(ctx, &value, query, siteID, postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", models.ErrNotFound
		}
		return "", fmt.Errorf("failed to get outgoing url: %w", err)
	}
	return value.String, nil
}

// GetMany returns the stored outgoing URLs for postIDs, keyed by post id.
func (r *OutgoingURLRepository) GetMany(ctx context.Context, siteID int64, postIDs []int64) (map[int64]string, error) {
	result := make(map[int64]string, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(
		`SELECT post_id, outgoing_url FROM wp_post_outgoing_urls WHERE wp_site_id = ? AND post_id IN (?)`,
		siteID, postIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build outgoing url query: %w", err)
	}

	var rows []struct {
		PostID      int64          `db:"post_id"`
		OutgoingURL sql.NullString `db:"outgoing_url"`
	}
	if err = r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get outgoing urls: %w", err)
	}

	for _, row := range rows {
		result[row.PostID] = row.OutgoingURL.String
	}
	return result, nil
}

// Upsert stores the outgoing URL for a post, replacing any previous value.
func (r *OutgoingURLRepository) Upsert(ctx context.Context, siteID, postID int64, postURL, outgoingURL string) error {
	ts := now()
	query := r.db.Rebind(`
		INSERT INTO wp_post_outgoing_urls (wp_site_id, post_id, post_url, outgoing_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (wp_site_id, post_id) DO UPDATE SET
			post_url = excluded.post_url,
			outgoing_url = excluded.outgoing_url,
			updated_at = excluded.updated_at
	`)

	if _, err := r.db.ExecContext(ctx, query, siteID, postID, postURL, outgoingURL, ts, ts); err != nil {
		return fmt.Errorf("failed to upsert outgoing url: %w", err)
	}
	return nil
}
