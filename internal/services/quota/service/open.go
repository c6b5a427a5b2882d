package service

import (
	"context"

	"ossmk/internal/platform/store"
	"ossmk/internal/services/quota/repo"
	storagedom "ossmk/internal/services/storage/domain"
	storagesvc "ossmk/internal/services/storage/service"
)

// OpenPolicy dials the quota store behind dsn and ensures its schema.
// The accounting tables are relational, so ok=false for clickhouse DSNs
// (and for a disabled tier the caller can skip the open entirely).
func OpenPolicy(ctx context.Context, dsn string, cfg Config) (*Service, func(context.Context) error, bool, error) {
	engine, err := storagesvc.Engine(dsn)
	if err != nil {
		return nil, nil, false, err
	}

	var st *store.Store
	switch engine {
	case storagedom.EnginePostgres:
		st, err = store.Open(ctx, store.Config{PG: store.PGConfig{Enabled: true, URL: dsn}})
	case storagedom.EngineSQLite:
		st, err = store.Open(ctx, store.Config{Lite: store.LiteConfig{Enabled: true, Path: storagesvc.SQLitePath(dsn)}})
	default:
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, err
	}

	var db = st.PG
	if engine == storagedom.EngineSQLite {
		db = st.Lite
	}
	r := repo.NewSQL(db)
	if err := r.EnsureSchema(ctx); err != nil {
		_ = st.Close(ctx)
		return nil, nil, false, err
	}
	return New(r, cfg), st.Close, true, nil
}
