package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/index-checker/internal/models"
)

// EditHistoryRepository stores saved copies of edit sessions.
type EditHistoryRepository struct {
	db *sqlx.DB
}

// NewEditHistoryRepository creates an EditHistoryRepository.
func NewEditHistoryRepository(db *sqlx.DB) *EditHistoryRepository {
	return &EditHistoryRepository{db: db}
}

type editHistoryRow struct {
	ID           int64          `db:"id"`
	WPSiteID     *int64         `db:"wp_site_id"`
	SessionName  string         `db:"session_name"`
	TotalPosts   int            `db:"total_posts"`
	EditedPosts  int            `db:"edited_posts"`
	SnapshotData sql.NullString `db:"snapshot_data"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    *time.Time     `db:"updated_at"`
}

func (row *editHistoryRow) toModel(withData bool) models.EditHistory {
	h := models.EditHistory{
		ID:          row.ID,
		WPSiteID:    row.WPSiteID,
		SessionName: row.SessionName,
		TotalPosts:  row.TotalPosts,
		EditedPosts: row.EditedPosts,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if withData && row.SnapshotData.Valid && json.Valid([]byte(row.SnapshotData.String)) {
		h.SnapshotData = json.RawMessage(row.SnapshotData.String)
	}
	return h
}

// snapshotText stores JSON as text; lib/pq would otherwise send []byte as bytea.
func snapshotText(data json.RawMessage) any {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}

// Create stores h and returns its id.
func (r *EditHistoryRepository) Create(ctx context.Context, h *models.EditHistory) (int64, error) {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now()
	}

	query := r.db.Rebind(`
		INSERT INTO wp_edit_history (wp_site_id, session_name, total_posts, edited_posts, snapshot_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	var id int64
	if err := r.db.QueryRowxContext(ctx, query,
		h.WPSiteID, h.SessionName, h.TotalPosts, h.EditedPosts, snapshotText(h.SnapshotData), h.CreatedAt,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create edit history: %w", err)
	}

	h.ID = id
	return id, nil
}

// Update replaces the snapshot and, when given, the post counters.
func (r *EditHistoryRepository) Update(
	ctx context.Context, id int64, snapshot json.RawMessage, total, edited *int,
) error {
	sets := []string{"snapshot_data = ?", "updated_at = ?"}
	args := []any{snapshotText(snapshot), now()}

	if total != nil {
		sets = append(sets, "total_posts = ?")
		args = append(args, *total)
	}
	if edited != nil {
		sets = append(sets, "edited_posts = ?")
		args = append(args, *edited)
	}
	args = append(args, id)

	query := r.db.Rebind(`UPDATE wp_edit_history SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update edit history: %w", err)
	}
	return requireAffected(res)
}

// List returns history entries newest first, without snapshot data.
func (r *EditHistoryRepository) List(ctx context.Context, limit int) ([]models.EditHistory, error) {
	var rows []editHistoryRow
	query := r.db.Rebind(`
		SELECT id, wp_site_id, session_name, total_posts, edited_posts, NULL AS snapshot_data, created_at, updated_at
		FROM wp_edit_history
		ORDER BY created_at DESC
		LIMIT ?
	`)
	if err := r.db.SelectContext(ctx, &rows, query, listLimit(limit)); err != nil {
		return nil, fmt.Errorf("failed to list edit history: %w", err)
	}

	history := make([]models.EditHistory, 0, len(rows))
	for i := range rows {
		history = append(history, rows[i].toModel(false))
	}
	return history, nil
}

// Get returns one history entry including its snapshot data.
func (r *EditHistoryRepository) Get(ctx context.Context, id int64) (*models.EditHistory, error) {
	var row editHistoryRow
	query := r.db.Rebind(`
		SELECT id, wp_site_id, session_name, total_posts, edited_posts, snapshot_data, created_at, updated_at
		FROM wp_edit_history
		WHERE id = ?
	`)
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get edit history: %w", err)
	}

	h := row.toModel(true)
	return &h, nil
}

// Delete removes one history entry.
func (r *EditHistoryRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM wp_edit_history WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete edit history: %w", err)
	}
	return requireAffected(res)
}
