// Package httpcache stores conditional-GET state in the embedded lite store
package httpcache

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"ossmk/internal/platform/config"
	perr "ossmk/internal/platform/errors"
	"ossmk/internal/platform/store"
)

// Entry is one cached response keyed by the full request URL
type Entry struct {
	URL          string
	ETag         string
	LastModified string
	Body         []byte
	FetchedAt    time.Time
}

// Cache wraps a lite TxRunner with the http_cache table.
// The lite adapter serializes writers; readers run concurrently.
type Cache struct {
	db store.TxRunner
}

// New wraps an opened lite seam
func New(db store.TxRunner) *Cache { return &Cache{db: db} }

// EnsureSchema creates the cache table when absent. Idempotent.
func (c *Cache) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS http_cache (
			url TEXT PRIMARY KEY,
			etag TEXT,
			last_modified TEXT,
			body TEXT,
			fetched_at TEXT
		)`
	_, err := c.db.Exec(ctx, ddl)
	return perr.FromSQLite(err, "http_cache ensure schema")
}

// Get looks up the entry for url. A miss is (zero, false, nil).
func (c *Cache) Get(ctx context.Context, url string) (Entry, bool, error) {
	rows, err := c.db.Query(ctx,
		`SELECT etag, last_modified, body, fetched_at FROM http_cache WHERE url = $1`, url)
	if err != nil {
		return Entry{}, false, perr.FromSQLite(err, "http_cache get")
	}
	defer rows.Close()

	if !rows.Next() {
		return Entry{}, false, perr.FromSQLite(rows.Err(), "http_cache get")
	}
	var (
		e       = Entry{URL: url}
		body    string
		fetched string
	)
	if err := rows.Scan(&e.ETag, &e.LastModified, &body, &fetched); err != nil {
		return Entry{}, false, perr.FromSQLite(err, "http_cache scan")
	}
	e.Body = []byte(body)
	if fetched != "" {
		if t, terr := time.Parse(time.RFC3339Nano, fetched); terr == nil {
			e.FetchedAt = t
		}
	}
	return e, true, nil
}

// Put atomically replaces the whole row for e.URL
func (c *Cache) Put(ctx context.Context, e Entry) error {
	_, err := c.db.Exec(ctx, `
		INSERT INTO http_cache (url, etag, last_modified, body, fetched_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (url) DO UPDATE SET
			etag = excluded.etag,
			last_modified = excluded.last_modified,
			body = excluded.body,
			fetched_at = excluded.fetched_at`,
		e.URL, e.ETag, e.LastModified, string(e.Body), e.FetchedAt.UTC().Format(time.RFC3339Nano))
	return perr.FromSQLite(err, "http_cache put")
}

// DefaultPath resolves the on-disk cache location: OSSMK_CACHE_PATH when set,
// else <user cache dir>/ossmk/http_cache.db. cfg must be scoped to OSSMK_.
func DefaultPath(cfg config.Conf) string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = "."
	}
	return cfg.MayPath("CACHE_PATH", filepath.Join(base, "ossmk", "http_cache.db"))
}

// Open opens the cache store at path and ensures the schema.
// The returned close func tears down the underlying lite handle.
func Open(ctx context.Context, path string) (*Cache, func(context.Context) error, error) {
	st, err := store.Open(ctx, store.Config{Lite: store.LiteConfig{Enabled: true, Path: path}})
	if err != nil {
		return nil, nil, err
	}
	c := New(st.Lite)
	if err := c.EnsureSchema(ctx); err != nil {
		_ = st.Close(ctx)
		return nil, nil, err
	}
	return c, st.Close, nil
}
