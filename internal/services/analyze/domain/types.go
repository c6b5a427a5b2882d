// Package domain holds the analyze service contract
package domain

import "ossmk/internal/core/event"

// Request describes one analysis run
type Request struct {
	// User is the forge login to analyze
	User string `json:"user" validate:"required"`

	// Rules selects the rule set: empty/"default"/"auto" or a .toml path
	Rules string `json:"rules,omitempty"`

	// Since bounds the fetch window: NNNd, NNNh, or an ISO timestamp
	Since string `json:"since,omitempty"`

	// Persist stores events and scores when set
	Persist bool `json:"persist,omitempty"`

	// DSN overrides the configured storage target for this run
	DSN string `json:"dsn,omitempty"`
}

// Summary condenses one run for quick display
type Summary struct {
	Login             string             `json:"login"`
	TotalEvents       int                `json:"total_events"`
	ScoresByDimension map[string]float64 `json:"scores_by_dimension"`
}

// AnalysisResult is the full outcome of one run
type AnalysisResult struct {
	User        string        `json:"user"`
	EventsCount int           `json:"events_count"`
	Events      []event.Event `json:"events"`
	Scores      []event.Score `json:"scores"`
	Summary     Summary       `json:"summary"`
}
