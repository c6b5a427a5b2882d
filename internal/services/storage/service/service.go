// Package service opens persistence backends from a DSN
package service

import (
	"context"
	"strings"

	"ossmk/internal/core/event"
	perr "ossmk/internal/platform/errors"
	"ossmk/internal/platform/store"
	"ossmk/internal/services/storage/domain"
	"ossmk/internal/services/storage/repo"
)

// Engine classifies a DSN. Plain filesystem paths count as sqlite so a
// bare "events.db" works without a scheme.
func Engine(dsn string) (domain.Engine, error) {
	s := strings.TrimSpace(dsn)
	switch {
	case s == "":
		return "", perr.InvalidArgf("storage dsn required")
	case strings.HasPrefix(s, "postgres://"), strings.HasPrefix(s, "postgresql://"):
		return domain.EnginePostgres, nil
	case strings.HasPrefix(s, "clickhouse://"):
		return domain.EngineClickhouse, nil
	case strings.HasPrefix(s, "sqlite://"), strings.HasPrefix(s, "sqlite:"):
		return domain.EngineSQLite, nil
	case strings.Contains(s, "://"):
		return "", perr.InvalidArgf("unsupported storage dsn scheme in %q", dsn)
	default:
		return domain.EngineSQLite, nil
	}
}

// SQLitePath strips the optional scheme from a sqlite DSN
func SQLitePath(dsn string) string {
	s := strings.TrimSpace(dsn)
	s = strings.TrimPrefix(s, "sqlite://")
	s = strings.TrimPrefix(s, "sqlite:")
	return s
}

// Open dials the backend the DSN names and ensures its schema.
// Closing the returned backend tears down the connection.
func Open(ctx context.Context, dsn string) (domain.Backend, error) {
	engine, err := Engine(dsn)
	if err != nil {
		return nil, err
	}

	var (
		st      *store.Store
		backend domain.Backend
	)
	switch engine {
	case domain.EnginePostgres:
		st, err = store.Open(ctx, store.Config{PG: store.PGConfig{Enabled: true, URL: dsn}})
		if err != nil {
			return nil, err
		}
		backend = repo.NewSQL(st.PG)
	case domain.EngineSQLite:
		path := SQLitePath(dsn)
		if path == "" {
			return nil, perr.InvalidArgf("empty sqlite path in %q", dsn)
		}
		st, err = store.Open(ctx, store.Config{Lite: store.LiteConfig{Enabled: true, Path: path}})
		if err != nil {
			return nil, err
		}
		backend = repo.NewSQL(st.Lite)
	case domain.EngineClickhouse:
		st, err = store.Open(ctx, store.Config{CH: store.CHConfig{Enabled: true, URL: dsn, ClientName: "ossmk"}})
		if err != nil {
			return nil, err
		}
		backend = repo.NewCH(st.CH)
	}

	b := &managed{Backend: backend, closeStore: st.Close}
	if err := b.EnsureSchema(ctx); err != nil {
		_ = b.Close(ctx)
		return nil, err
	}
	return b, nil
}

// Save persists events then scores and reports what happened.
// Event rows land before score rows so a partial failure never leaves
// scores that reference missing events.
func Save(ctx context.Context, b domain.Backend, evs []event.Event, scores []event.Score) (domain.SaveReport, error) {
	rep := domain.SaveReport{EventsSeen: len(evs)}
	n, err := b.SaveEvents(ctx, evs)
	rep.EventsInserted = n
	if err != nil {
		return rep, err
	}
	if err := b.SaveScores(ctx, scores); err != nil {
		return rep, err
	}
	rep.ScoresWritten = len(scores)
	return rep, nil
}

// managed couples the repo lifetime to the store it was opened from
type managed struct {
	domain.Backend
	closeStore func(context.Context) error
}

func (m *managed) Close(ctx context.Context) error {
	err := m.Backend.Close(ctx)
	if m.closeStore != nil {
		if cerr := m.closeStore(ctx); err == nil {
			err = cerr
		}
	}
	return err
}
