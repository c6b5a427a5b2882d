// Package rules models the scoring rule set and its built-in defaults
package rules

import (
	"sort"

	"ossmk/internal/core/event"
)

// DecayMode selects how event age reduces weight
type DecayMode string

// Supported decay modes
const (
	DecayNone        DecayMode = "none"
	DecayExponential DecayMode = "exponential"
	DecayLinear      DecayMode = "linear"
	DecayWindow      DecayMode = "window"
)

// Decay is the tagged decay configuration
type Decay struct {
	Mode         DecayMode
	HalfLifeDays float64
	WindowDays   float64
}

// Dimension is one scoring axis over a subset of kinds
type Dimension struct {
	Kinds          map[event.Kind]struct{}
	Weight         float64
	ByKind         map[event.Kind]float64
	ClipPerUserDay map[event.Kind]int
}

// Matches reports whether the dimension accumulates the given kind
func (d Dimension) Matches(k event.Kind) bool {
	_, ok := d.Kinds[k]
	return ok
}

// KindWeight resolves the per-kind weight with fallback to the dimension weight
func (d Dimension) KindWeight(k event.Kind) float64 {
	if w, ok := d.ByKind[k]; ok {
		return w
	}
	return d.Weight
}

// RuleSet is an immutable bundle of dimensions, fairness caps, and decay.
// Load it once per analysis; the scoring pass never mutates it.
type RuleSet struct {
	Dimensions map[string]Dimension
	Fairness   map[event.Kind]int
	Decay      Decay
}

// DimensionNames returns dimension names in sorted order so accumulation
// visits them deterministically
func (r RuleSet) DimensionNames() []string {
	names := make([]string, 0, len(r.Dimensions))
	for name := range r.Dimensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cap returns the global fairness cap for a kind
func (r RuleSet) Cap(k event.Kind) (int, bool) {
	n, ok := r.Fairness[k]
	return n, ok
}

// Default returns the built-in rule set
func Default() RuleSet {
	return RuleSet{
		Dimensions: map[string]Dimension{
			"code": {
				Kinds:  kindSet(event.KindPR, event.KindCommit),
				Weight: 1.0,
				ByKind: map[event.Kind]float64{event.KindCommit: 0.8, event.KindPR: 1.0},
			},
			"review": {
				Kinds:  kindSet(event.KindReview),
				Weight: 0.6,
			},
			"community": {
				Kinds:  kindSet(event.KindIssue),
				Weight: 0.3,
			},
		},
		Fairness: map[event.Kind]int{
			event.KindCommit: 20,
			event.KindPR:     5,
			event.KindReview: 50,
			event.KindIssue:  10,
		},
		Decay: Decay{Mode: DecayNone},
	}
}

func kindSet(ks ...event.Kind) map[event.Kind]struct{} {
	m := make(map[event.Kind]struct{}, len(ks))
	for _, k := range ks {
		m[k] = struct{}{}
	}
	return m
}
