// Package lite provides the embedded sqlite client used for the HTTP cache
// and the single-file storage backend (modernc.org/sqlite, no cgo)
package lite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// Config configures the embedded sqlite store
type Config struct {
	// Path is a filesystem path, ":memory:", or a sqlite:// DSN
	Path string

	// BusyTimeout bounds how long a writer waits on SQLITE_BUSY
	BusyTimeout time.Duration
}

// Lite wraps a database/sql handle over a single sqlite file
type Lite struct {
	DB   *sql.DB
	Path string
}

const defaultBusyTimeout = 5 * time.Second

// NormalizePath strips sqlite DSN prefixes down to a plain path.
// Accepted forms: sqlite:///abs/path, sqlite://rel/path, sqlite:path,
// bare paths, and ":memory:" in any of those shapes.
func NormalizePath(dsn string) string {
	s := strings.TrimSpace(dsn)
	switch {
	case strings.HasPrefix(s, "sqlite://"):
		s = strings.TrimPrefix(s, "sqlite://")
		// sqlite:///abs/path keeps its absolute slash
		if strings.HasPrefix(s, "/") && strings.HasPrefix(dsn, "sqlite:///") {
			s = strings.TrimPrefix(s, "/")
			if s != ":memory:" {
				s = "/" + s
			}
		}
	case strings.HasPrefix(s, "sqlite:"):
		s = strings.TrimPrefix(s, "sqlite:")
	}
	return s
}

// Open opens (creating when needed) the sqlite file at cfg.Path
func Open(_ context.Context, cfg Config) (*Lite, error) {
	path := NormalizePath(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("lite: empty path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("lite: mkdir %s: %w", filepath.Dir(path), err)
		}
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}

	// WAL keeps concurrent readers unblocked while the single writer runs
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	q.Add("_pragma", "foreign_keys(ON)")

	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("lite: open %s: %w", path, err)
	}
	// a single connection sidesteps table-lock races between pooled conns;
	// ":memory:" additionally needs it so every query sees the same database
	db.SetMaxOpenConns(1)

	return &Lite{DB: db, Path: path}, nil
}

// Close closes the underlying handle
func (l *Lite) Close() error {
	if l == nil || l.DB == nil {
		return nil
	}
	return l.DB.Close()
}
