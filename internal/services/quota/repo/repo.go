// Package repo implements quota persistence on the portable sql seam
package repo

import (
	"context"
	"time"

	"ossmk/internal/modkit/repokit"
	perr "ossmk/internal/platform/errors"
	"ossmk/internal/platform/store"
	"ossmk/internal/services/quota/domain"
)

// SQL runs against postgres or the embedded sqlite
type SQL struct {
	db repokit.TxRunner
}

// NewSQL binds the repo to an opened seam
func NewSQL(db repokit.TxRunner) *SQL { return &SQL{db: db} }

// EnsureSchema creates the accounting tables when absent
func (r *SQL) EnsureSchema(ctx context.Context) error {
	ddls := []string{`
		CREATE TABLE IF NOT EXISTS ossmk_users (
			login TEXT PRIMARY KEY,
			created_at TEXT NOT NULL
		)`, `
		CREATE TABLE IF NOT EXISTS ossmk_update_usage (
			login TEXT NOT NULL,
			day TEXT NOT NULL,
			used BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (login, day)
		)`, `
		CREATE TABLE IF NOT EXISTS ossmk_snapshots (
			id TEXT PRIMARY KEY,
			login TEXT NOT NULL,
			total DOUBLE PRECISION NOT NULL,
			taken_at TEXT NOT NULL
		)`, `
		CREATE INDEX IF NOT EXISTS idx_ossmk_snapshots_login
		ON ossmk_snapshots (login, taken_at)`, `
		CREATE TABLE IF NOT EXISTS ossmk_growth_points (
			login TEXT NOT NULL,
			points DOUBLE PRECISION NOT NULL,
			awarded_at TEXT NOT NULL,
			snapshot_id TEXT NOT NULL
		)`}
	for _, ddl := range ddls {
		if _, err := r.db.Exec(ctx, ddl); err != nil {
			return perr.Wrap(err, perr.ErrorCodeDB, "quota ensure schema")
		}
	}
	return nil
}

// EnsureUser registers login on first sight
func (r *SQL) EnsureUser(ctx context.Context, login string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO ossmk_users (login, created_at)
		VALUES ($1, $2)
		ON CONFLICT (login) DO NOTHING`,
		login, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "quota ensure user")
	}
	return nil
}

// UsageFor returns how many units login consumed on day; an unseen
// (login, day) reads as zero
func (r *SQL) UsageFor(ctx context.Context, login, day string) (int, error) {
	used, err := store.One(ctx, r.db, scanInt,
		`SELECT used FROM ossmk_update_usage WHERE login = $1 AND day = $2`, login, day)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return 0, nil
		}
		return 0, perr.Wrap(err, perr.ErrorCodeDB, "quota usage")
	}
	return used, nil
}

// IncrementUsage consumes one unit for login on day
func (r *SQL) IncrementUsage(ctx context.Context, login, day string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO ossmk_update_usage (login, day, used)
		VALUES ($1, $2, 1)
		ON CONFLICT (login, day) DO UPDATE SET used = ossmk_update_usage.used + 1`,
		login, day)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "quota increment")
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot for login.
// A clean slate is (zero, false, nil).
func (r *SQL) LatestSnapshot(ctx context.Context, login string) (domain.Snapshot, bool, error) {
	s, err := store.One(ctx, r.db, func(row store.Row) (domain.Snapshot, error) {
		s := domain.Snapshot{Login: login}
		var taken string
		if err := row.Scan(&s.ID, &s.Total, &taken); err != nil {
			return s, err
		}
		if t, terr := time.Parse(time.RFC3339Nano, taken); terr == nil {
			s.TakenAt = t
		}
		return s, nil
	}, `
		SELECT id, total, taken_at FROM ossmk_snapshots
		WHERE login = $1
		ORDER BY taken_at DESC
		LIMIT 1`, login)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return domain.Snapshot{}, false, nil
		}
		return domain.Snapshot{}, false, perr.Wrap(err, perr.ErrorCodeDB, "quota latest snapshot")
	}
	return s, true, nil
}

// RecordSnapshot stores the snapshot and its growth points in one
// transaction; a failure leaves neither row behind. Zero or negative
// points record the snapshot alone.
func (r *SQL) RecordSnapshot(ctx context.Context, s domain.Snapshot, points float64) error {
	at := s.TakenAt.UTC().Format(time.RFC3339Nano)
	err := r.db.Tx(ctx, func(q repokit.Queryer) error {
		if points > 0 {
			if _, err := q.Exec(ctx, `
				INSERT INTO ossmk_growth_points (login, points, awarded_at, snapshot_id)
				VALUES ($1, $2, $3, $4)`,
				s.Login, points, at, s.ID); err != nil {
				return err
			}
		}
		_, err := q.Exec(ctx, `
			INSERT INTO ossmk_snapshots (id, login, total, taken_at)
			VALUES ($1, $2, $3, $4)`,
			s.ID, s.Login, s.Total, at)
		return err
	})
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "quota record snapshot")
	}
	return nil
}

func scanInt(row store.Row) (int, error) {
	var n int
	err := row.Scan(&n)
	return n, err
}
