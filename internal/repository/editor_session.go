package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/index-checker/internal/models"
)

const sessionColumns = `session_id, wp_site_id, domain, session_name, total_posts, is_snapshot, created_at, last_accessed`

// EditorSessionRepository stores editor sessions and their post rows.
type EditorSessionRepository struct {
	db *sqlx.DB
}

// NewEditorSessionRepository creates an EditorSessionRepository.
func NewEditorSessionRepository(db *sqlx.DB) *EditorSessionRepository {
	return &EditorSessionRepository{db: db}
}

type editorPostRow struct {
	PostID        int64          `db:"post_id"`
	URL           string         `db:"url"`
	Title         sql.NullString `db:"title"`
	Status        sql.NullString `db:"status"`
	OutgoingURL   sql.NullString `db:"outgoing_url"`
	OutgoingLinks sql.NullString `db:"outgoing_links"`
	DateModified  sql.NullString `db:"date_modified"`
}

func (row *editorPostRow) toModel() models.EditorPost {
	post := models.EditorPost{
		PostID:        row.PostID,
		URL:           row.URL,
		Title:         row.Title.String,
		Status:        row.Status.String,
		OutgoingURL:   row.OutgoingURL.String,
		OutgoingLinks: []models.OutgoingLink{},
		DateModified:  row.DateModified.String,
	}
	if row.OutgoingLinks.Valid && row.OutgoingLinks.String != "" {
		// A malformed column reads as no links rather than failing the whole session.
		_ = json.Unmarshal([]byte(row.OutgoingLinks.String), &post.OutgoingLinks)
	}
	return post
}

func encodeLinks(links []models.OutgoingLink) (string, error) {
	if links == nil {
		links = []models.OutgoingLink{}
	}
	data, err := json.Marshal(links)
	if err != nil {
		return "", fmt.Errorf("failed to encode outgoing links: %w", err)
	}
	return string(data), nil
}

// Create stores session and its posts. Posts without an id are skipped and
// session.TotalPosts is set to the number stored.
func (r *EditorSessionRepository) Create(
	ctx context.Context, session *models.EditorSession, posts []models.EditorPost,
) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return insertSession(ctx, tx, session, posts)
	})
}

// CreateSnapshot stores session as a named snapshot.
func (r *EditorSessionRepository) CreateSnapshot(
	ctx context.Context, session *models.EditorSession, posts []models.EditorPost,
) error {
	session.IsSnapshot = true
	return r.Create(ctx, session, posts)
}

// ReplaceSnapshot deletes snapshot oldID and stores session as its
// replacement in one transaction. If either step fails the old snapshot stays.
func (r *EditorSessionRepository) ReplaceSnapshot(
	ctx context.Context, oldID string, session *models.EditorSession, posts []models.EditorPost,
) error {
	session.IsSnapshot = true
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := deleteSession(ctx, tx, oldID); err != nil {
			return err
		}
		return insertSession(ctx, tx, session, posts)
	})
}

func insertSession(ctx context.Context, tx *sqlx.Tx, session *models.EditorSession, posts []models.EditorPost) error {
	ts := now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = ts
	}
	session.LastAccessed = ts
	session.TotalPosts = countIdentified(posts)

	query := tx.Rebind(`
		INSERT INTO wp_editor_sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if _, err := tx.ExecContext(ctx, query,
		session.SessionID, session.WPSiteID, session.Domain, session.SessionName,
		session.TotalPosts, session.IsSnapshot, session.CreatedAt, session.LastAccessed,
	); err != nil {
		return fmt.Errorf("failed to create editor session: %w", err)
	}

	_, err := insertPosts(ctx, tx, session.SessionID, posts)
	return err
}

func countIdentified(posts []models.EditorPost) int {
	n := 0
	for i := range posts {
		if posts[i].PostID != 0 {
			n++
		}
	}
	return n
}

func insertPosts(ctx context.Context, tx *sqlx.Tx, sessionID string, posts []models.EditorPost) (int, error) {
	query := tx.Rebind(`
		INSERT INTO wp_editor_posts (session_id, post_id, url, title, status, outgoing_url, outgoing_links, date_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)

	stored := 0
	for i := range posts {
		p := &posts[i]
		if p.PostID == 0 {
			continue
		}
		links, err := encodeLinks(p.OutgoingLinks)
		if err != nil {
			return 0, err
		}
		if _, err = tx.ExecContext(ctx, query,
			sessionID, p.PostID, p.URL, p.Title, p.Status, p.OutgoingURL, links, p.DateModified,
		); err != nil {
			return 0, fmt.Errorf("failed to insert editor post %d: %w", p.PostID, err)
		}
		stored++
	}
	return stored, nil
}

// Get returns a session with its posts and records the access.
func (r *EditorSessionRepository) Get(ctx context.Context, sessionID string) (*models.EditorSession, error) {
	touch := r.db.Rebind(`UPDATE wp_editor_sessions SET last_accessed = ? WHERE session_id = ?`)
	res, err := r.db.ExecContext(ctx, touch, now(), sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to touch editor session: %w", err)
	}
	if err = requireAffected(res); err != nil {
		return nil, err
	}

	session := &models.EditorSession{}
	query := r.db.Rebind(`SELECT ` + sessionColumns + ` FROM wp_editor_sessions WHERE session_id = ?`)
	if err = r.db.GetContext(ctx, session, query, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get editor session: %w", err)
	}

	posts, err := r.posts(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Posts = posts

	return session, nil
}

func (r *EditorSessionRepository) posts(ctx context.Context, sessionID string) ([]models.EditorPost, error) {
	var rows []editorPostRow
	query := r.db.Rebind(`
		SELECT post_id, url, title, status, outgoing_url, outgoing_links, date_modified
		FROM wp_editor_posts
		WHERE session_id = ?
		ORDER BY id ASC
	`)
	if err := r.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to get editor posts: %w", err)
	}

	posts := make([]models.EditorPost, 0, len(rows))
	for i := range rows {
		posts = append(posts, rows[i].toModel())
	}
	return posts, nil
}

// UpdatePostField sets one whitelisted field of one session post.
// outgoing_links takes a []models.OutgoingLink (or anything that marshals to one);
// every other field takes a string.
func (r *EditorSessionRepository) UpdatePostField(
	ctx context.Context, sessionID string, postID int64, field string, value any,
) error {
	if !models.IsSessionField(field) {
		return fmt.Errorf("%w: field %q cannot be updated", models.ErrInvalidInput, field)
	}

	stored, err := columnValue(field, value)
	if err != nil {
		return err
	}

	// field is whitelisted above, so interpolating the column name is safe.
	query := r.db.Rebind(`UPDATE wp_editor_posts SET ` + field + ` = ? WHERE session_id = ? AND post_id = ?`)
	res, err := r.db.ExecContext(ctx, query, stored, sessionID, postID)
	if err != nil {
		return fmt.Errorf("failed to update editor post: %w", err)
	}
	if err = requireAffected(res); err != nil {
		return err
	}

	touch := r.db.Rebind(`UPDATE wp_editor_sessions SET last_accessed = ? WHERE session_id = ?`)
	if _, err = r.db.ExecContext(ctx, touch, now(), sessionID); err != nil {
		return fmt.Errorf("failed to touch editor session: %w", err)
	}
	return nil
}

func columnValue(field string, value any) (string, error) {
	if field == models.FieldOutgoingLinks {
		switch v := value.(type) {
		case []models.OutgoingLink:
			return encodeLinks(v)
		case string:
			return v, nil
		default:
			data, err := json.Marshal(v)
			if err != nil {
				return "", fmt.Errorf("failed to encode outgoing links: %w", err)
			}
			return string(data), nil
		}
	}

	switch v := value.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		return fmt.Sprint(v), nil
	}
}

// ReplacePosts swaps every post row of a session for posts.
func (r *EditorSessionRepository) ReplacePosts(ctx context.Context, sessionID string, posts []models.EditorPost) (int, error) {
	var stored int
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM wp_editor_posts WHERE session_id = ?`), sessionID); err != nil {
			return fmt.Errorf("failed to clear editor posts: %w", err)
		}

		n, err := insertPosts(ctx, tx, sessionID, posts)
		if err != nil {
			return err
		}
		stored = n

		update := tx.Rebind(`UPDATE wp_editor_sessions SET total_posts = ?, last_accessed = ? WHERE session_id = ?`)
		res, err := tx.ExecContext(ctx, update, stored, now(), sessionID)
		if err != nil {
			return fmt.Errorf("failed to update editor session: %w", err)
		}
		return requireAffected(res)
	})
	if err != nil {
		return 0, err
	}
	return stored, nil
}

// FindSnapshot returns the snapshot stored for (siteID, domain). A nil siteID matches sessions without a site.
func (r *EditorSessionRepository) FindSnapshot(
	ctx context.Context, siteID *int64, domain string,
) (*models.EditorSession, error) {
	session := &models.EditorSession{}

	var err error
	if siteID == nil {
		query := r.db.Rebind(`SELECT ` + sessionColumns + ` FROM wp_editor_sessions
			WHERE is_snapshot = ? AND domain = ? AND wp_site_id IS NULL
			ORDER BY created_at DESC LIMIT 1`)
		err = r.db.GetContext(ctx, session, query, true, domain)
	} else {
		query := r.db.Rebind(`SELECT ` + sessionColumns + ` FROM wp_editor_sessions
			WHERE is_snapshot = ? AND domain = ? AND wp_site_id = ?
			ORDER BY created_at DESC LIMIT 1`)
		err = r.db.GetContext(ctx, session, query, true, domain, *siteID)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find snapshot: %w", err)
	}
	return session, nil
}

// List returns sessions matching filter, most recently accessed first. Posts are not loaded.
func (r *EditorSessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.EditorSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM wp_editor_sessions WHERE 1 = 1`
	args := make([]any, 0, 3)

	if filter.WPSiteID != nil {
		query += ` AND wp_site_id = ?`
		args = append(args, *filter.WPSiteID)
	}
	if filter.SnapshotsOnly {
		query += ` AND is_snapshot = ?`
		args = append(args, true)
	}
	query += ` ORDER BY last_accessed DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	sessions := []models.EditorSession{}
	if err := r.db.SelectContext(ctx, &sessions, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list editor sessions: %w", err)
	}
	return sessions, nil
}

// Delete removes a session and its posts.
func (r *EditorSessionRepository) Delete(ctx context.Context, sessionID string) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return deleteSession(ctx, tx, sessionID)
	})
}

func deleteSession(ctx context.Context, tx *sqlx.Tx, sessionID string) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM wp_editor_posts WHERE session_id = ?`), sessionID); err != nil {
		return fmt.Errorf("failed to delete editor posts: %w", err)
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM wp_editor_sessions WHERE session_id = ?`), sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete editor session: %w", err)
	}
	return requireAffected(res)
}

// DeleteStale removes working sessions last accessed before cutoff. Snapshots are kept.
func (r *EditorSessionRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		posts := tx.Rebind(`
			DELETE FROM wp_editor_posts WHERE session_id IN (
				SELECT session_id FROM wp_editor_sessions WHERE is_snapshot = ? AND last_accessed < ?
			)
		`)
		if _, err := tx.ExecContext(ctx, posts, false, cutoff); err != nil {
			return fmt.Errorf("failed to delete stale editor posts: %w", err)
		}

		sessions := tx.Rebind(`DELETE FROM wp_editor_sessions WHERE is_snapshot = ? AND last_accessed < ?`)
		res, err := tx.ExecContext(ctx, sessions, false, cutoff)
		if err != nil {
			return fmt.Errorf("failed to delete stale editor sessions: %w", err)
		}
		deleted, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to count stale editor sessions: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// SetSite attaches a WordPress site to a session that was created without one.
func (r *EditorSessionRepository) SetSite(ctx context.Context, sessionID string, siteID int64) error {
	query := r.db.Rebind(`UPDATE wp_editor_sessions SET wp_site_id = ? WHERE session_id = ?`)
	res, err := r.db.ExecContext(ctx, query, siteID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to set editor session site: %w", err)
	}
	return requireAffected(res)
}
