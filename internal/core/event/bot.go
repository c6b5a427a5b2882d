package event

import (
	"strings"

	"golang.org/x/text/cases"
)

var fold = cases.Fold()

// knownBots are automation accounts that do not carry the [bot] suffix
var knownBots = map[string]struct{}{
	"dependabot":     {},
	"github-actions": {},
	"renovate":       {},
	"renovate[bot]":  {},
}

// IsBotLogin reports whether a login looks like an automation account.
// Comparison is case folded so Dependabot and DEPENDABOT match too.
func IsBotLogin(login string) bool {
	if login == "" {
		return false
	}
	l := fold.String(login)
	if _, ok := knownBots[l]; ok {
		return true
	}
	return strings.HasSuffix(l, "[bot]") || strings.HasSuffix(l, "-bot") || strings.Contains(l, "[bot]")
}
