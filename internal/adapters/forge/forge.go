// Package forge defines the capability surface an activity provider exposes
package forge

import (
	"context"

	"ossmk/internal/core/event"
)

// Provider is the fetch capability set for one forge. GitHub is the only
// concrete implementation today; the seam exists so others can be added
// without touching the services.
type Provider interface {
	// ID names the forge, e.g. "github"
	ID() string

	// UserRepos lists owner/name full names of repos owned by login
	UserRepos(ctx context.Context, login string) ([]string, error)

	// RepoIssues returns issue and pr events for one repo (state=all)
	RepoIssues(ctx context.Context, owner, name string) ([]event.Event, error)

	// RepoCommits returns commit events, optionally bounded by a since
	// timestamp already normalized by timeparse.Since
	RepoCommits(ctx context.Context, owner, name, since string) ([]event.Event, error)

	// RepoReviews returns review events across the most recently updated
	// pull requests, up to maxPRs (<= 0 means the provider default)
	RepoReviews(ctx context.Context, owner, name string, maxPRs int) ([]event.Event, error)

	// UserEvents returns the contribution events for a login across the
	// user's repos, honoring the provider's API mode
	UserEvents(ctx context.Context, login, since string) ([]event.Event, error)
}
