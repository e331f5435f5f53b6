package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dfryer1193/spaceblog/blog/domain"
	"github.com/dfryer1193/spaceblog/shared/db"
)

var _ domain.PageRepository = (*SQLitePageRepository)(nil)

// SQLitePageRepository implements domain.PageRepository using SQL database (SQLite)
// for page records and the output directory for page content.
type SQLitePageRepository struct {
	db        *sql.DB
	outputDir string
}

// NewPageRepository creates a new SQLitePageRepository from a standard sql.DB
func NewPageRepository(sqlDB *sql.DB, outputDir string) *SQLitePageRepository {
	return &SQLitePageRepository{
		db:        sqlDB,
		outputDir: outputDir,
	}
}

const upsertPageQuery = `
	INSERT INTO pages (path, kind, slug, build_id, generated_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
		kind = excluded.kind,
		slug = excluded.slug,
		build_id = excluded.build_id,
		generated_at = excluded.generated_at,
		created_at = COALESCE(pages.created_at, excluded.created_at)
`

// SavePage saves a page to both filesystem and database within a transaction
func (r *SQLitePageRepository) SavePage(ctx context.Context, p *domain.GeneratedPage) error {
	if p == nil {
		return fmt.Errorf("page cannot be nil")
	}

	localPath, err := r.localPath(p.Path)
	if err != nil {
		return err
	}

	generatedAt := p.GeneratedAt.UTC()
	if p.GeneratedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}

	// Run filesystem and database operations in a transaction
	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		var slug any
		if p.Slug != "" {
			slug = p.Slug
		}

		executor := db.GetExecutor(txCtx, r.db)
		_, err := executor.ExecContext(txCtx, upsertPageQuery,
			p.Path,
			string(p.Kind),
			slug,
			p.BuildID,
			generatedAt,
			time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert page record: %w", err)
		}

		// Then write to filesystem - if this fails, transaction rolls back
		if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
			return fmt.Errorf("failed to create page directory: %w", err)
		}

		tmpPath := localPath + ".tmp"
		if err := os.WriteFile(tmpPath, p.Content, 0644); err != nil {
			return fmt.Errorf("failed to write page file: %w", err)
		}
		if err := os.Rename(tmpPath, localPath); err != nil {
			_ = os.Remove(tmpPath)
			return fmt.Errorf("failed to move page file into place: %w", err)
		}

		return nil
	})
}

const getPageQuery = `
	SELECT path, kind, slug, build_id, generated_at
	FROM pages
	WHERE path = ?
`

// GetPage retrieves a single page record by path. Content is not loaded.
func (r *SQLitePageRepository) GetPage(ctx context.Context, path string) (*domain.GeneratedPage, error) {
	if path == "" {
		return nil, fmt.Errorf("page path cannot be empty")
	}

	var row pageRow
	err := r.db.QueryRowContext(ctx, getPageQuery, path).Scan(
		&row.Path,
		&row.Kind,
		&row.Slug,
		&row.BuildID,
		&row.GeneratedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %s: %w", path, domain.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	return row.toDomain(), nil
}

const listStalePagesQuery = `
	SELECT path, kind, slug, build_id, generated_at
	FROM pages
	WHERE generated_at < ?
	ORDER BY generated_at ASC
`

// ListStalePages retrieves pages generated before the given time, oldest first
func (r *SQLitePageRepository) ListStalePages(ctx context.Context, before time.Time) ([]*domain.GeneratedPage, error) {
	rows, err := r.db.QueryContext(ctx, listStalePagesQuery, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pages: %w", err)
	}
	defer rows.Close()

	pages := make([]*domain.GeneratedPage, 0)
	for rows.Next() {
		var row pageRow
		err := rows.Scan(
			&row.Path,
			&row.Kind,
			&row.Slug,
			&row.BuildID,
			&row.GeneratedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page row: %w", err)
		}
		pages = append(pages, row.toDomain())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating page rows: %w", err)
	}

	return pages, nil
}

const deletePageQuery = `
	DELETE FROM pages WHERE path = ?
`

// DeletePage removes a page from both filesystem and database within a transaction
func (r *SQLitePageRepository) DeletePage(ctx context.Context, path string) error {
	localPath, err := r.localPath(path)
	if err != nil {
		return err
	}

	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, r.db)
		_, err := executor.ExecContext(txCtx, deletePageQuery, path)
		if err != nil {
			return fmt.Errorf("failed to delete page record: %w", err)
		}

		if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove page file: %w", err)
		}

		return nil
	})
}

// localPath resolves a page path inside the output directory, rejecting paths that escape it.
func (r *SQLitePageRepository) localPath(pagePath string) (string, error) {
	if pagePath == "" {
		return "", fmt.Errorf("page path cannot be empty")
	}

	clean := filepath.Clean(filepath.FromSlash(pagePath))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("page path %q escapes the output directory", pagePath)
	}

	return filepath.Join(r.outputDir, clean), nil
}

// pageRow is a private struct used to scan database rows
type pageRow struct {
	Path        string         `db:"path"`
	Kind        string         `db:"kind"`
	Slug        sql.NullString `db:"slug"`
	BuildID     string         `db:"build_id"`
	GeneratedAt sql.NullTime   `db:"generated_at"`
}

// toDomain converts a pageRow to a domain.GeneratedPage, handling nullable columns
func (pr *pageRow) toDomain() *domain.GeneratedPage {
	page := &domain.GeneratedPage{
		Path:    pr.Path,
		Kind:    domain.PageKind(pr.Kind),
		BuildID: pr.BuildID,
	}

	if pr.Slug.Valid {
		page.Slug = pr.Slug.String
	}
	if pr.GeneratedAt.Valid {
		page.GeneratedAt = pr.GeneratedAt.Time
	}

	return page
}
