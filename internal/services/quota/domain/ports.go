package domain

import "context"

// StorageRepo persists quota accounting
type StorageRepo interface {
	EnsureSchema(ctx context.Context) error
	EnsureUser(ctx context.Context, login string) error
	UsageFor(ctx context.Context, login, day string) (int, error)
	IncrementUsage(ctx context.Context, login, day string) error
	LatestSnapshot(ctx context.Context, login string) (Snapshot, bool, error)

	// RecordSnapshot stores the snapshot and any earned growth points
	// atomically; points at or below zero record the snapshot alone
	RecordSnapshot(ctx context.Context, s Snapshot, points float64) error
}

// PolicyPort is what callers consume
type PolicyPort interface {
	// Check consumes one update unit for login, failing when the daily
	// budget is exhausted. A zero budget disables the tier entirely.
	Check(ctx context.Context, login string) error

	// Snapshot records total for login and awards growth points for a
	// positive delta against the previous snapshot
	Snapshot(ctx context.Context, login string, total float64) (SnapshotResult, error)
}
