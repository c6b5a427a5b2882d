// Package timeparse turns human "since" values into forge-ready timestamps
package timeparse

import (
	"strconv"
	"strings"
	"time"
)

// layouts tried in order for absolute inputs; naive forms are assumed UTC
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Since normalizes a user supplied "since" value to RFC3339 UTC.
// Relative forms "NNNd" and "NNNh" are resolved against now. Absolute forms
// are parsed with the layouts above and clamped to now minus maxDays when
// maxDays > 0 and the instant is older. Anything unparseable comes back
// verbatim so the upstream API can reject it with its own message.
// Empty input returns empty (meaning: no lower bound).
func Since(raw string, now time.Time, maxDays int) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	now = now.UTC()

	if d, ok := relative(s); ok {
		return now.Add(-d).Format(time.RFC3339)
	}

	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err != nil {
			continue
		}
		t = t.UTC()
		if maxDays > 0 {
			earliest := now.AddDate(0, 0, -maxDays)
			if t.Before(earliest) {
				t = earliest
			}
		}
		return t.Format(time.RFC3339)
	}
	return s
}

// relative parses "30d" / "12h" (case insensitive); digits only before the unit
func relative(s string) (time.Duration, bool) {
	ls := strings.ToLower(s)
	if len(ls) < 2 {
		return 0, false
	}
	num, unit := ls[:len(ls)-1], ls[len(ls)-1]
	n, err := strconv.Atoi(num)
	if err != nil || n < 0 || strings.ContainsAny(num, "+-. ") {
		return 0, false
	}
	switch unit {
	case 'd':
		return time.Duration(n) * 24 * time.Hour, true
	case 'h':
		return time.Duration(n) * time.Hour, true
	}
	return 0, false
}
