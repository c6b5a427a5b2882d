package domain

import (
	"context"

	"ossmk/internal/core/event"
)

// Backend persists events and scores behind one of the supported engines
type Backend interface {
	// EnsureSchema creates the tables when absent. Idempotent.
	EnsureSchema(ctx context.Context) error

	// SaveEvents inserts events, skipping ids already present.
	// The count of newly inserted rows is returned.
	SaveEvents(ctx context.Context, evs []event.Event) (int64, error)

	// SaveScores upserts score rows keyed by (user, dimension, window)
	SaveScores(ctx context.Context, scores []event.Score) error

	// Close releases the underlying connections
	Close(ctx context.Context) error
}
