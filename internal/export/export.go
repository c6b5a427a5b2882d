// Package export renders events and scores as JSON or CSV
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/jszwec/csvutil"

	"ossmk/internal/core/event"
	perr "ossmk/internal/platform/errors"
)

// Format names an output encoding
type Format string

// Supported formats
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a format flag value; empty means json
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", perr.InvalidArgf("unknown output format %q", s)
}

// WriteEventsJSON writes events as one JSON array with a trailing newline
func WriteEventsJSON(w io.Writer, evs []event.Event) error {
	return writeJSON(w, evs)
}

// WriteScoresJSON writes scores as one JSON array with a trailing newline
func WriteScoresJSON(w io.Writer, scores []event.Score) error {
	return writeJSON(w, scores)
}

// WriteEventsCSV writes events with a header row
func WriteEventsCSV(w io.Writer, evs []event.Event) error {
	return writeCSV(w, evs)
}

// WriteScoresCSV writes scores with a header row
func WriteScoresCSV(w io.Writer, scores []event.Score) error {
	return writeCSV(w, scores)
}

// WriteEvents dispatches on format
func WriteEvents(w io.Writer, evs []event.Event, f Format) error {
	if f == FormatCSV {
		return WriteEventsCSV(w, evs)
	}
	return WriteEventsJSON(w, evs)
}

// WriteScores dispatches on format
func WriteScores(w io.Writer, scores []event.Score, f Format) error {
	if f == FormatCSV {
		return WriteScoresCSV(w, scores)
	}
	return WriteScoresJSON(w, scores)
}

// ReadEventsJSON decodes an event array previously written by
// WriteEventsJSON
func ReadEventsJSON(r io.Reader) ([]event.Event, error) {
	var evs []event.Event
	if err := json.NewDecoder(r).Decode(&evs); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "decode events")
	}
	return evs, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "encode json")
	}
	return nil
}

func writeCSV[T any](w io.Writer, rows []T) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeJSON, "encode csv")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "flush csv")
	}
	return nil
}
