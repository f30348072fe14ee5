package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/index-checker/internal/models"
)

// DomainCheckRepository persists check runs and their per-URL results.
type DomainCheckRepository struct {
	db *sqlx.DB
}

// NewDomainCheckRepository creates a DomainCheckRepository.
func NewDomainCheckRepository(db *sqlx.DB) *DomainCheckRepository {
	return &DomainCheckRepository{db: db}
}

// Create stores one check run for domain and returns its id.
// Counts are derived from urls.
func (r *DomainCheckRepository) Create(ctx context.Context, domain string, urls []models.CheckedURL) (int64, error) {
	check := models.DomainCheck{Domain: domain, CreatedAt: now()}
	check.Tally(urls)

	var id int64
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			INSERT INTO domain_checks (domain, total_urls, indexed_count, not_indexed_count, error_count, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id
		`)
		if err := tx.QueryRowxContext(ctx, query,
			check.Domain, check.TotalURLs, check.IndexedCount, check.NotIndexedCount, check.ErrorCount, check.CreatedAt,
		).Scan(&id); err != nil {
			return fmt.Errorf("failed to create domain check: %w", err)
		}

		insertURL := tx.Rebind(`
			INSERT INTO domain_check_urls (domain_check_id, url, status, checked_at)
			VALUES (?, ?, ?, ?)
		`)
		for _, u := range urls {
			checkedAt := u.CheckedAt
			if checkedAt.IsZero() {
				checkedAt = check.CreatedAt
			}
			if _, err := tx.ExecContext(ctx, insertURL, id, u.URL, string(u.Status), checkedAt); err != nil {
				return fmt.Errorf("failed to insert checked url: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// List returns the most recent check runs, newest first.
func (r *DomainCheckRepository) List(ctx context.Context, limit int) ([]models.DomainCheck, error) {
	checks := []models.DomainCheck{}
	query := r.db.Rebind(`
		SELECT id, domain, total_urls, indexed_count, not_indexed_count, error_count, created_at
		FROM domain_checks
		ORDER BY created_at DESC
		LIMIT ?
	`)

	if err := r.db.SelectContext(ctx, &checks, query, listLimit(limit)); err != nil {
		return nil, fmt.Errorf("failed to list domain checks: %w", err)
	}

	return checks, nil
}

// Get returns one check run with its URLs, newest check first.
func (r *DomainCheckRepository) Get(ctx context.Context, id int64) (*models.DomainCheck, error) {
	check := &models.DomainCheck{}
	query := r.db.Rebind(`
		SELECT id, domain, total_urls, indexed_count, not_indexed_count, error_count, created_at
		FROM domain_checks
		WHERE id = ?
	`)

	if err := r.db.GetContext(ctx, check, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get domain check: %w", err)
	}

	urls := []models.CheckedURL{}
	urlsQuery := r.db.Rebind(`
		SELECT url, status, checked_at
		FROM domain_check_urls
		WHERE domain_check_id = ?
		ORDER BY checked_at DESC
	`)
	if err := r.db.SelectContext(ctx, &urls, urlsQuery, id); err != nil {
		return nil, fmt.Errorf("failed to get domain check urls: %w", err)
	}
	check.URLs = urls

	return check, nil
}

// ClearAll removes every check record, legacy rows included.
func (r *DomainCheckRepository) ClearAll(ctx context.Context) (models.ClearResult, error) {
	var result models.ClearResult

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		steps := []struct {
			table string
			dst   *int64
		}{
			{"check_history", &result.Legacy},
			{"domain_check_urls", &result.URLs},
			{"domain_checks", &result.Domains},
		}
		for _, step := range steps {
			res, err := tx.ExecContext(ctx, "DELETE FROM "+step.table)
			if err != nil {
				return fmt.Errorf("failed to clear %s: %w", step.table, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to count cleared %s rows: %w", step.table, err)
			}
			*step.dst = n
		}
		return nil
	})
	if err != nil {
		return models.ClearResult{}, err
	}

	return result, nil
}

// InsertLegacy writes a single result to the flat check_history table.
func (r *DomainCheckRepository) InsertLegacy(ctx context.Context, url string, status models.IndexStatus) error {
	query := r.db.Rebind(`INSERT INTO check_history (url, status, checked_at) VALUES (?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, url, string(status), now()); err != nil {
		return fmt.Errorf("failed to insert check history: %w", err)
	}
	return nil
}
