// Package score reduces canonical events to per-user dimension scores
package score

import (
	"math"
	"sort"
	"time"

	"ossmk/internal/core/event"
	"ossmk/internal/core/rules"

	"golang.org/x/text/cases"
)

var fold = cases.Fold()

// Window label attached to every emitted score
const windowAll = "all"

// Options carries the run configuration collected once at pipeline
// construction. Score itself never reads the environment.
type Options struct {
	// SelfRepoPenalty < 1.0 discounts events in repos owned by the actor
	SelfRepoPenalty float64

	// UserOrgs + OrgRepoPenalty discount events in repos owned by the
	// actor's organizations
	UserOrgs       []string
	OrgRepoPenalty float64

	// Decay overrides the rule set decay when non-nil
	Decay *rules.Decay

	// Now is the reference instant for decay; required for determinism
	Now time.Time
}

type counterKey struct {
	user string
	kind event.Kind
	day  string
}

// Score accumulates events into per-(user, dimension) values under the rule
// set. Pure: identical inputs with identical Options.Now produce identical
// output regardless of input order.
func Score(events []event.Event, rs rules.RuleSet, opts Options) []event.Score {
	if opts.SelfRepoPenalty == 0 {
		opts.SelfRepoPenalty = 1.0
	}
	if opts.OrgRepoPenalty == 0 {
		opts.OrgRepoPenalty = 1.0
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	decay := rs.Decay
	if opts.Decay != nil {
		decay = *opts.Decay
	}

	orgs := make(map[string]struct{}, len(opts.UserOrgs))
	for _, o := range opts.UserOrgs {
		if o != "" {
			orgs[fold.String(o)] = struct{}{}
		}
	}

	// canonical order so daily clipping is deterministic
	sorted := make([]event.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	dimNames := rs.DimensionNames()
	scores := make(map[string]map[string]float64)
	counters := make(map[counterKey]int)

	for _, e := range sorted {
		hasTime := !e.CreatedAt.IsZero()

		// clip before any dimension accumulates; missing created_at
		// exempts the event from clipping
		if hasTime {
			day := e.CreatedAt.UTC().Format("2006-01-02")
			if limit, ok := rs.Cap(e.Kind); ok {
				key := counterKey{user: e.UserID, kind: e.Kind, day: day}
				counters[key]++
				if counters[key] > limit {
					continue
				}
			}
		}

		penalty := eventPenalty(e, opts, orgs)

		for _, name := range dimNames {
			dim := rs.Dimensions[name]
			if !dim.Matches(e.Kind) {
				continue
			}
			w := dim.KindWeight(e.Kind) * penalty

			if hasTime {
				ageDays := now.Sub(e.CreatedAt.UTC()).Hours() / 24
				switch decay.Mode {
				case rules.DecayExponential:
					if decay.HalfLifeDays > 0 {
						w *= math.Exp(-math.Ln2 * ageDays / decay.HalfLifeDays)
					}
				case rules.DecayLinear:
					if decay.WindowDays > 0 {
						w *= math.Max(0, 1-ageDays/decay.WindowDays)
					}
				case rules.DecayWindow:
					if ageDays > decay.WindowDays {
						// outside the window this dimension gets nothing;
						// other dimensions still accumulate
						continue
					}
				}
			}

			if scores[e.UserID] == nil {
				scores[e.UserID] = make(map[string]float64)
			}
			scores[e.UserID][name] += w
		}
	}

	return flatten(scores)
}

// eventPenalty computes the multiplicative penalty factor for one event.
// A malformed repo_id disables penalties without dropping the event.
func eventPenalty(e event.Event, opts Options, orgs map[string]struct{}) float64 {
	if opts.SelfRepoPenalty >= 1.0 && len(orgs) == 0 {
		return 1.0
	}
	ref, err := event.ParseRepoID(e.RepoID)
	if err != nil {
		return 1.0
	}
	owner := fold.String(ref.Owner)

	p := 1.0
	if opts.SelfRepoPenalty < 1.0 && owner == fold.String(e.UserID) {
		p *= opts.SelfRepoPenalty
	}
	if _, ok := orgs[owner]; ok {
		p *= opts.OrgRepoPenalty
	}
	return p
}

// flatten emits one row per (user, dimension) in sorted order, dropping
// zero-valued dimensions
func flatten(scores map[string]map[string]float64) []event.Score {
	users := make([]string, 0, len(scores))
	for u := range scores {
		users = append(users, u)
	}
	sort.Strings(users)

	var out []event.Score
	for _, u := range users {
		dims := make([]string, 0, len(scores[u]))
		for d := range scores[u] {
			dims = append(dims, d)
		}
		sort.Strings(dims)
		for _, d := range dims {
			v := scores[u][d]
			if v == 0 {
				continue
			}
			out = append(out, event.Score{UserID: u, Dimension: d, Value: v, Window: windowAll})
		}
	}
	return out
}
