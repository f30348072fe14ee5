package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/index-checker/internal/models"
)

const wpSiteColumns = `id, name, site_url, username, app_password, wordpress_password, wordpress_url,
	is_active, created_at, updated_at`

// WPSiteRepository stores WordPress site configurations.
type WPSiteRepository struct {
	db *sqlx.DB
}

// NewWPSiteRepository creates a WPSiteRepository.
func NewWPSiteRepository(db *sqlx.DB) *WPSiteRepository {
	return &WPSiteRepository{db: db}
}

// List returns every site, newest first.
func (r *WPSiteRepository) List(ctx context.Context) ([]models.WPSite, error) {
	sites := []models.WPSite{}
	query := `SELECT ` + wpSiteColumns + ` FROM wp_sites ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &sites, query); err != nil {
		return nil, fmt.Errorf("failed to list wp sites: %w", err)
	}
	return sites, nil
}

// Get returns one site.
func (r *WPSiteRepository) Get(ctx context.Context, id int64) (*models.WPSite, error) {
	site := &models.WPSite{}
	query := r.db.Rebind(`SELECT ` + wpSiteColumns + ` FROM wp_sites WHERE id = ?`)

	if err := r.db.GetContext(ctx, site, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get wp site: %w", err)
	}
	return site, nil
}

// GetActive returns the active site or models.ErrNoActiveSite.
func (r *WPSiteRepository) GetActive(ctx context.Context) (*models.WPSite, error) {
	site := &models.WPSite{}
	query := r.db.Rebind(`SELECT ` + wpSiteColumns + ` FROM wp_sites WHERE is_active = ? LIMIT 1`)

	if err := r.db.GetContext(ctx, site, query, true); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNoActiveSite
		}
		return nil, fmt.Errorf("failed to get active wp site: %w", err)
	}
	return site, nil
}

// Create stores a site. The first site stored becomes active.
func (r *WPSiteRepository) Create(ctx context.Context, in *models.WPSiteInput) (*models.WPSite, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM wp_sites`); err != nil {
		return nil, fmt.Errorf("failed to count wp sites: %w", err)
	}

	ts := now()
	query := r.db.Rebind(`
		INSERT INTO wp_sites (name, site_url, username, app_password, wordpress_password, wordpress_url,
			is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	var id int64
	err := r.db.QueryRowxContext(ctx, query,
		deref(in.Name), deref(in.SiteURL), deref(in.Username), deref(in.AppPassword),
		in.WordPressPassword, in.WordPressURL, count == 0, ts, ts,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create wp site: %w", err)
	}

	return r.Get(ctx, id)
}

// Update applies the non-nil fields of in.
func (r *WPSiteRepository) Update(ctx context.Context, id int64, in *models.WPSiteInput) (*models.WPSite, error) {
	sets := make([]string, 0, 7)
	args := make([]any, 0, 8)

	add := func(column string, value *string) {
		if value != nil {
			sets = append(sets, column+" = ?")
			args = append(args, *value)
		}
	}
	add("name", in.Name)
	add("site_url", in.SiteURL)
	add("username", in.Username)
	add("app_password", in.AppPassword)
	add("wordpress_password", in.WordPressPassword)
	add("wordpress_url", in.WordPressURL)

	if len(sets) == 0 {
		return r.Get(ctx, id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, now(), id)

	query := r.db.Rebind(`UPDATE wp_sites SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update wp site: %w", err)
	}
	if err = requireAffected(res); err != nil {
		return nil, err
	}

	return r.Get(ctx, id)
}

// Delete removes a site. Deleting the active site promotes the oldest remaining one.
func (r *WPSiteRepository) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var active bool
		if err := tx.GetContext(ctx, &active, tx.Rebind(`SELECT is_active FROM wp_sites WHERE id = ?`), id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.ErrNotFound
			}
			return fmt.Errorf("failed to get wp site: %w", err)
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM wp_sites WHERE id = ?`), id); err != nil {
			return fmt.Errorf("failed to delete wp site: %w", err)
		}

		if !active {
			return nil
		}

		promote := tx.Rebind(`
			UPDATE wp_sites SET is_active = ?, updated_at = ?
			WHERE id = (SELECT id FROM wp_sites ORDER BY created_at ASC LIMIT 1)
		`)
		if _, err := tx.ExecContext(ctx, promote, true, now()); err != nil {
			return fmt.Errorf("failed to promote wp site: %w", err)
		}
		return nil
	})
}

// SetActive makes id the only active site.
func (r *WPSiteRepository) SetActive(ctx context.Context, id int64) (*models.WPSite, error) {
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var exists int
		if err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM wp_sites WHERE id = ?`), id); err != nil {
			return fmt.Errorf("failed to get wp site: %w", err)
		}
		if exists == 0 {
			return models.ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE wp_sites SET is_active = ?`), false); err != nil {
			return fmt.Errorf("failed to deactivate wp sites: %w", err)
		}

		activate := tx.Rebind(`UPDATE wp_sites SET is_active = ?, updated_at = ? WHERE id = ?`)
		if _, err := tx.ExecContext(ctx, activate, true, now(), id); err != nil {
			return fmt.Errorf("failed to activate wp site: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, id)
}

// FindByDomain returns the site whose site_url host matches domain, ignoring scheme and "www.".
func (r *WPSiteRepository) FindByDomain(ctx context.Context, domain string) (*models.WPSite, error) {
	want := models.NormalizeDomain(domain)
	if want == "" {
		return nil, models.ErrNotFound
	}

	sites, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	for i := range sites {
		if models.NormalizeDomain(sites[i].SiteURL) == want {
			return &sites[i], nil
		}
	}
	return nil, models.ErrNotFound
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
