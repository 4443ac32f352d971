package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current cache schema version. The cache is a disposable
// snapshot, so a mismatch simply rebuilds it on the next discovery.
const schemaVersion = 1

// ErrSchemaMismatch indicates the cache schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("catalog cache schema mismatch")

// Cache is an offline snapshot of the discovered catalog, backed by SQLite.
// It lets status and --offline selection work when the listing site is
// unreachable; discovery replaces it wholesale.
type Cache struct {
	db   *sql.DB
	path string
}

// OpenCache initializes or connects to the catalog cache database.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog cache: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	cache := &Cache{db: db, path: path}
	if err := cache.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return cache, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Path returns the database file location.
func (c *Cache) Path() string {
	return c.path
}

func (c *Cache) initSchema(ctx context.Context) error {
	var tableExists int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return c.createSchema(ctx)
	}

	var version int
	err = c.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: cache has version %d, expected %d (delete %s and rediscover)",
			ErrSchemaMismatch, version, schemaVersion, c.path)
	}
	return nil
}

func (c *Cache) createSchema(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Replace swaps the snapshot for the given items in one transaction, keeping
// the listing order via the position column.
func (c *Cache) Replace(ctx context.Context, items []Item) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM catalog_items"); err != nil {
		return fmt.Errorf("clear catalog cache: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO catalog_items (position, identifier, title, publisher, published_at, views, source_url, refreshed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for pos, item := range items {
		published := ""
		if !item.PublishedAt.IsZero() {
			published = item.PublishedAt.UTC().Format(time.RFC3339)
		}
		if _, err := stmt.ExecContext(ctx, pos, item.Identifier, item.Title, item.Publisher, published, item.Views, item.SourceURL, now); err != nil {
			return fmt.Errorf("insert catalog item %s: %w", item.Identifier, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog replace: %w", err)
	}
	return nil
}

// All returns the cached catalog in listing order.
func (c *Cache) All(ctx context.Context) ([]Item, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT identifier, title, publisher, published_at, views, source_url
		FROM catalog_items ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("query catalog cache: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		var published string
		if err := rows.Scan(&item.Identifier, &item.Title, &item.Publisher, &published, &item.Views, &item.SourceURL); err != nil {
			return nil, fmt.Errorf("scan catalog item: %w", err)
		}
		if published != "" {
			if ts, parseErr := time.Parse(time.RFC3339, published); parseErr == nil {
				item.PublishedAt = ts
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog cache: %w", err)
	}
	return items, nil
}

// Count returns the number of cached items.
func (c *Cache) Count(ctx context.Context) (int, error) {
	var count int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM catalog_items").Scan(&count); err != nil {
		return 0, fmt.Errorf("count catalog cache: %w", err)
	}
	return count, nil
}
