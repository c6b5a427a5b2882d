// Package domain holds the quota service contract
package domain

import "time"

// Usage is one login's consumption for one UTC day
type Usage struct {
	Login string
	Day   string
	Used  int
}

// Snapshot is a point-in-time record of a login's total score
type Snapshot struct {
	ID      string
	Login   string
	Total   float64
	TakenAt time.Time
}

// SnapshotResult reports the delta against the prior snapshot and any
// growth points the delta earned
type SnapshotResult struct {
	Snapshot      Snapshot
	Delta         float64
	PointsAwarded float64
}
