// Package repo implements the storage backends
package repo

import (
	"context"
	"time"

	"ossmk/internal/core/event"
	"ossmk/internal/modkit/repokit"
	perr "ossmk/internal/platform/errors"
)

// saveChunk bounds how many rows one transaction carries
const saveChunk = 500

// SQL persists events and scores through the portable sql seam.
// The same statements run against postgres and the embedded sqlite;
// timestamps are rendered Go-side so neither dialect has to agree on
// a native type.
type SQL struct {
	db  repokit.TxRunner
	now func() time.Time
}

// NewSQL binds a repo to an opened seam
func NewSQL(db repokit.TxRunner) *SQL {
	return &SQL{db: db, now: time.Now}
}

// EnsureSchema creates the event and score tables when absent
func (r *SQL) EnsureSchema(ctx context.Context) error {
	const events = `
		CREATE TABLE IF NOT EXISTS ossmk_events (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			repo_id TEXT NOT NULL,
			source_host TEXT NOT NULL DEFAULT 'github.com',
			user_id TEXT NOT NULL,
			created_at TEXT,
			lines_added BIGINT NOT NULL DEFAULT 0,
			lines_removed BIGINT NOT NULL DEFAULT 0,
			inserted_at TEXT NOT NULL
		)`
	const eventsIdx = `
		CREATE INDEX IF NOT EXISTS idx_ossmk_events_user
		ON ossmk_events (user_id, created_at)`
	const scores = `
		CREATE TABLE IF NOT EXISTS ossmk_scores (
			user_id TEXT NOT NULL,
			dimension TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			"window" TEXT NOT NULL,
			generated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, dimension, "window")
		)`
	for _, ddl := range []string{events, eventsIdx, scores} {
		if _, err := r.db.Exec(ctx, ddl); err != nil {
			return wrapDB(err, "storage ensure schema")
		}
	}
	return nil
}

// SaveEvents inserts events in bounded transactions, skipping duplicates.
// A chunk that fails with a retryable error is attempted once more.
func (r *SQL) SaveEvents(ctx context.Context, evs []event.Event) (int64, error) {
	var inserted int64
	for start := 0; start < len(evs); start += saveChunk {
		end := min(start+saveChunk, len(evs))
		n, err := r.saveEventChunk(ctx, evs[start:end])
		if err != nil && perr.Retryable(err) {
			n, err = r.saveEventChunk(ctx, evs[start:end])
		}
		if err != nil {
			return inserted, err
		}
		inserted += n
	}
	return inserted, nil
}

func (r *SQL) saveEventChunk(ctx context.Context, evs []event.Event) (int64, error) {
	var inserted int64
	insertedAt := r.now().UTC().Format(time.RFC3339Nano)
	err := r.db.Tx(ctx, func(q repokit.Queryer) error {
		const ins = `
			INSERT INTO ossmk_events
				(id, kind, repo_id, source_host, user_id, created_at, lines_added, lines_removed, inserted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING`
		for _, e := range evs {
			tag, err := q.Exec(ctx, ins,
				e.ID, string(e.Kind), e.RepoID, sourceHost(e.RepoID), e.UserID,
				renderTime(e.CreatedAt), e.LinesAdded, e.LinesRemoved, insertedAt)
			if err != nil {
				return err
			}
			inserted += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return 0, wrapDB(err, "storage save events")
	}
	return inserted, nil
}

// SaveScores upserts score rows keyed by (user, dimension, window)
func (r *SQL) SaveScores(ctx context.Context, scores []event.Score) error {
	for start := 0; start < len(scores); start += saveChunk {
		end := min(start+saveChunk, len(scores))
		err := r.saveScoreChunk(ctx, scores[start:end])
		if err != nil && perr.Retryable(err) {
			err = r.saveScoreChunk(ctx, scores[start:end])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *SQL) saveScoreChunk(ctx context.Context, scores []event.Score) error {
	err := r.db.Tx(ctx, func(q repokit.Queryer) error {
		const ins = `
			INSERT INTO ossmk_scores (user_id, dimension, value, "window", generated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, dimension, "window") DO UPDATE SET
				value = excluded.value,
				generated_at = excluded.generated_at`
		for _, s := range scores {
			generated := renderTime(s.GeneratedAt)
			if generated == "" {
				generated = r.now().UTC().Format(time.RFC3339Nano)
			}
			if _, err := q.Exec(ctx, ins, s.UserID, s.Dimension, s.Value, s.Window, generated); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapDB(err, "storage save scores")
	}
	return nil
}

// Close is a no-op; the seam's lifetime belongs to the caller
func (r *SQL) Close(context.Context) error { return nil }

// wrapDB tags uncoded driver errors as db failures while preserving
// classifications the adapters already applied
func wrapDB(err error, msg string) error {
	code := perr.CodeOf(err)
	if code == perr.ErrorCodeUnknown {
		code = perr.ErrorCodeDB
	}
	return perr.Wrap(err, code, msg)
}

// sourceHost extracts the forge host from a repo id, falling back to
// the default host for anything unparseable
func sourceHost(repoID string) string {
	if ref, err := event.ParseRepoID(repoID); err == nil {
		return ref.Host
	}
	return event.DefaultHost
}

func renderTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
