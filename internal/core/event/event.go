// Package event defines the canonical contribution event model
package event

import (
	"time"

	perr "ossmk/internal/platform/errors"
)

// Kind is the canonical event taxonomy
type Kind string

// Canonical kinds
const (
	KindCommit Kind = "commit"
	KindPR     Kind = "pr"
	KindReview Kind = "review"
	KindIssue  Kind = "issue"
)

// Kinds lists all canonical kinds in stable order
func Kinds() []Kind { return []Kind{KindCommit, KindPR, KindReview, KindIssue} }

// ParseKind validates a kind string
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindCommit, KindPR, KindReview, KindIssue:
		return Kind(s), nil
	}
	return "", perr.InvalidArgf("unknown event kind %q", s)
}

// Event is the canonical contribution record. IDs are stable across
// refetches and act as the dedup key; events are never mutated post-ingest.
// A zero CreatedAt means the forge did not supply a timestamp.
type Event struct {
	ID           string    `json:"id" csv:"id"`
	Kind         Kind      `json:"kind" csv:"kind"`
	RepoID       string    `json:"repo_id" csv:"repo_id"`
	UserID       string    `json:"user_id" csv:"user_id"`
	CreatedAt    time.Time `json:"created_at" csv:"created_at"`
	LinesAdded   int64     `json:"lines_added" csv:"lines_added"`
	LinesRemoved int64     `json:"lines_removed" csv:"lines_removed"`
}

// Score is one accumulated (subject, dimension) value
type Score struct {
	UserID      string    `json:"user_id" csv:"user_id"`
	Dimension   string    `json:"dimension" csv:"dimension"`
	Value       float64   `json:"value" csv:"value"`
	Window      string    `json:"window" csv:"window"`
	GeneratedAt time.Time `json:"generated_at,omitzero" csv:"generated_at,omitempty"`
}

// Dedupe drops events whose canonical id was already seen, keeping the first
// occurrence. The REST issues listing and the GraphQL search can both return
// the same item for one subject.
func Dedupe(evs []Event) []Event {
	if len(evs) < 2 {
		return evs
	}
	seen := make(map[string]struct{}, len(evs))
	out := evs[:0]
	for _, e := range evs {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}
