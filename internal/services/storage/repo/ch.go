package repo

import (
	"context"
	"time"

	"ossmk/internal/core/event"
	perr "ossmk/internal/platform/errors"
	"ossmk/internal/platform/store"
)

// CH persists events and scores in clickhouse. Dedup relies on
// ReplacingMergeTree folding rows with the same ordering key, so the
// inserted count reported here is the batch size, not a delta.
type CH struct {
	db  store.Clickhouse
	now func() time.Time
}

// NewCH binds a repo to an opened clickhouse seam
func NewCH(db store.Clickhouse) *CH {
	return &CH{db: db, now: time.Now}
}

// EnsureSchema creates the event and score tables when absent
func (r *CH) EnsureSchema(ctx context.Context) error {
	const events = `
		CREATE TABLE IF NOT EXISTS ossmk_events (
			id String,
			kind LowCardinality(String),
			repo_id String,
			source_host LowCardinality(String),
			user_id String,
			created_at DateTime64(3, 'UTC'),
			lines_added Int64,
			lines_removed Int64,
			inserted_at DateTime64(3, 'UTC')
		)
		ENGINE = ReplacingMergeTree(inserted_at)
		ORDER BY id`
	const scores = `
		CREATE TABLE IF NOT EXISTS ossmk_scores (
			user_id String,
			dimension LowCardinality(String),
			value Float64,
			window LowCardinality(String),
			generated_at DateTime64(3, 'UTC')
		)
		ENGINE = ReplacingMergeTree(generated_at)
		ORDER BY (user_id, dimension, window)`
	for _, ddl := range []string{events, scores} {
		if err := r.db.Exec(ctx, ddl); err != nil {
			return wrapDB(err, "storage ch ensure schema")
		}
	}
	return nil
}

// SaveEvents appends one batch per chunk
func (r *CH) SaveEvents(ctx context.Context, evs []event.Event) (int64, error) {
	insertedAt := r.now().UTC()
	for start := 0; start < len(evs); start += saveChunk {
		end := min(start+saveChunk, len(evs))
		rows := make([][]any, 0, end-start)
		for _, e := range evs[start:end] {
			rows = append(rows, []any{
				e.ID, string(e.Kind), e.RepoID, sourceHost(e.RepoID), e.UserID,
				e.CreatedAt.UTC(), e.LinesAdded, e.LinesRemoved, insertedAt,
			})
		}
		if err := r.db.Insert(ctx, "ossmk_events", rows); err != nil {
			return 0, wrapDB(err, "storage ch save events")
		}
	}
	return int64(len(evs)), nil
}

// SaveScores appends score rows; the merge tree keeps the newest per key
func (r *CH) SaveScores(ctx context.Context, scores []event.Score) error {
	generatedAt := r.now().UTC()
	for start := 0; start < len(scores); start += saveChunk {
		end := min(start+saveChunk, len(scores))
		rows := make([][]any, 0, end-start)
		for _, s := range scores[start:end] {
			at := s.GeneratedAt
			if at.IsZero() {
				at = generatedAt
			}
			rows = append(rows, []any{s.UserID, s.Dimension, s.Value, s.Window, at.UTC()})
		}
		if err := r.db.Insert(ctx, "ossmk_scores", rows); err != nil {
			return wrapDB(err, "storage ch save scores")
		}
	}
	return nil
}

// Close releases the connection
func (r *CH) Close(context.Context) error {
	if err := r.db.Close(); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "storage ch close")
	}
	return nil
}
