package score

import (
	"math"
	"testing"
	"time"

	"ossmk/internal/core/event"
	"ossmk/internal/core/rules"
)

var refNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func ev(id string, kind event.Kind, repo, user string, at time.Time) event.Event {
	return event.Event{ID: id, Kind: kind, RepoID: repo, UserID: user, CreatedAt: at}
}

func find(t *testing.T, scores []event.Score, user, dim string) float64 {
	t.Helper()
	for _, s := range scores {
		if s.UserID == user && s.Dimension == dim {
			return s.Value
		}
	}
	t.Fatalf("no score for (%s, %s) in %+v", user, dim, scores)
	return 0
}

func TestSingleCommitDefaultRules(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got := Score([]event.Event{ev("a", event.KindCommit, "github.com/x/y", "u", at)}, rules.Default(), Options{Now: refNow})
	if len(got) != 1 {
		t.Fatalf("expected one score, got %+v", got)
	}
	s := got[0]
	if s.UserID != "u" || s.Dimension != "code" || s.Value != 0.8 || s.Window != "all" {
		t.Fatalf("unexpected score %+v", s)
	}
}

func TestDailyClipping(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var evs []event.Event
	for i := 0; i < 25; i++ {
		evs = append(evs, ev(string(rune('a'+i)), event.KindCommit, "github.com/x/y", "u", at.Add(time.Duration(i)*time.Minute)))
	}
	got := Score(evs, rules.Default(), Options{Now: refNow})
	if v := find(t, got, "u", "code"); math.Abs(v-16.0) > 1e-9 {
		t.Fatalf("code = %v, want 16.0", v)
	}
}

func TestMixedKinds(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	evs := []event.Event{
		ev("p", event.KindPR, "github.com/x/y", "u", at),
		ev("i", event.KindIssue, "github.com/x/y", "u", at),
		ev("r", event.KindReview, "github.com/x/y", "u", at),
	}
	got := Score(evs, rules.Default(), Options{Now: refNow})
	if v := find(t, got, "u", "code"); v != 1.0 {
		t.Fatalf("code = %v", v)
	}
	if v := find(t, got, "u", "community"); v != 0.3 {
		t.Fatalf("community = %v", v)
	}
	if v := find(t, got, "u", "review"); v != 0.6 {
		t.Fatalf("review = %v", v)
	}
}

func TestExponentialDecayHalfLife(t *testing.T) {
	at := refNow.AddDate(0, 0, -10)
	opts := Options{
		Now:   refNow,
		Decay: &rules.Decay{Mode: rules.DecayExponential, HalfLifeDays: 10},
	}
	got := Score([]event.Event{ev("a", event.KindCommit, "github.com/x/y", "u", at)}, rules.Default(), opts)
	if v := find(t, got, "u", "code"); math.Abs(v-0.4) > 1e-9 {
		t.Fatalf("code = %v, want 0.4", v)
	}
}

func TestScoreIsOrderIndependent(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var evs []event.Event
	for i := 0; i < 30; i++ {
		evs = append(evs, ev(string(rune('a'+i)), event.KindCommit, "github.com/x/y", "u", day.Add(time.Duration(i%7)*time.Hour)))
	}
	rs := rules.Default()
	a := Score(evs, rs, Options{Now: refNow})

	rev := make([]event.Event, len(evs))
	for i, e := range evs {
		rev[len(evs)-1-i] = e
	}
	b := Score(rev, rs, Options{Now: refNow})

	if len(a) != len(b) {
		t.Fatalf("len mismatch %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("row %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestClipMonotonicity(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var evs []event.Event
	for i := 0; i < 12; i++ {
		evs = append(evs, ev(string(rune('a'+i)), event.KindCommit, "github.com/x/y", "u", day))
	}
	loose := rules.Default()
	tight := rules.Default()
	tight.Fairness = map[event.Kind]int{event.KindCommit: 4}

	vLoose := find(t, Score(evs, loose, Options{Now: refNow}), "u", "code")
	vTight := find(t, Score(evs, tight, Options{Now: refNow}), "u", "code")
	if vTight > vLoose {
		t.Fatalf("reducing a cap increased the score: %v > %v", vTight, vLoose)
	}
}

func TestPenaltyBounds(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	evs := []event.Event{
		ev("a", event.KindCommit, "github.com/u/own", "u", at),
		ev("b", event.KindCommit, "github.com/acme/lib", "u", at),
		ev("c", event.KindPR, "github.com/other/thing", "u", at),
	}
	rs := rules.Default()

	plain := Score(evs, rs, Options{Now: refNow})
	penalized := Score(evs, rs, Options{
		Now:             refNow,
		SelfRepoPenalty: 0.5,
		UserOrgs:        []string{"acme"},
		OrgRepoPenalty:  0.25,
	})

	for _, p := range penalized {
		base := find(t, plain, p.UserID, p.Dimension)
		if p.Value > base {
			t.Fatalf("penalty increased (%s,%s): %v > %v", p.UserID, p.Dimension, p.Value, base)
		}
	}
	// self repo: 0.8*0.5; org repo: 0.8*0.25; foreign pr untouched
	want := 0.8*0.5 + 0.8*0.25 + 1.0
	if v := find(t, penalized, "u", "code"); math.Abs(v-want) > 1e-9 {
		t.Fatalf("code = %v, want %v", v, want)
	}
}

func TestSelfPenaltyCaseFolded(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	evs := []event.Event{ev("a", event.KindCommit, "github.com/OctoCat/own", "octocat", at)}
	got := Score(evs, rules.Default(), Options{Now: refNow, SelfRepoPenalty: 0.5})
	if v := find(t, got, "octocat", "code"); math.Abs(v-0.4) > 1e-9 {
		t.Fatalf("code = %v, want 0.4", v)
	}
}

func TestMalformedRepoDisablesPenaltiesOnly(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	evs := []event.Event{ev("a", event.KindCommit, "not-a-repo", "u", at)}
	got := Score(evs, rules.Default(), Options{Now: refNow, SelfRepoPenalty: 0.1})
	// event still counts, at full weight
	if v := find(t, got, "u", "code"); v != 0.8 {
		t.Fatalf("code = %v, want 0.8", v)
	}
}

func TestMissingCreatedAtSkipsDecayAndClipping(t *testing.T) {
	var evs []event.Event
	for i := 0; i < 30; i++ {
		evs = append(evs, event.Event{
			ID: string(rune('a' + i)), Kind: event.KindCommit,
			RepoID: "github.com/x/y", UserID: "u",
		})
	}
	opts := Options{Now: refNow, Decay: &rules.Decay{Mode: rules.DecayExponential, HalfLifeDays: 1}}
	got := Score(evs, rules.Default(), opts)
	// 30 events, no clip at 20, no decay: 30 * 0.8
	if v := find(t, got, "u", "code"); math.Abs(v-24.0) > 1e-9 {
		t.Fatalf("code = %v, want 24.0", v)
	}
}

func TestLinearDecayReachesZero(t *testing.T) {
	at := refNow.AddDate(0, 0, -100)
	opts := Options{Now: refNow, Decay: &rules.Decay{Mode: rules.DecayLinear, WindowDays: 30}}
	got := Score([]event.Event{ev("a", event.KindCommit, "github.com/x/y", "u", at)}, rules.Default(), opts)
	if len(got) != 0 {
		t.Fatalf("expected zero-valued dimension to be omitted, got %+v", got)
	}
}

func TestWindowDecayDropsOldContribution(t *testing.T) {
	rs := rules.Default()
	// issue matches community only; an old issue outside the window scores nothing
	old := ev("o", event.KindIssue, "github.com/x/y", "u", refNow.AddDate(0, 0, -40))
	fresh := ev("f", event.KindIssue, "github.com/x/y", "u", refNow.AddDate(0, 0, -3))
	opts := Options{Now: refNow, Decay: &rules.Decay{Mode: rules.DecayWindow, WindowDays: 30}}
	got := Score([]event.Event{old, fresh}, rs, opts)
	if v := find(t, got, "u", "community"); v != 0.3 {
		t.Fatalf("community = %v, want 0.3", v)
	}
}

func TestClipCountsAcrossUTCDays(t *testing.T) {
	// same absolute day in UTC even when the source zone differs
	zone := time.FixedZone("plus9", 9*3600)
	a := ev("a", event.KindPR, "github.com/x/y", "u", time.Date(2024, 1, 2, 5, 0, 0, 0, zone))  // 2024-01-01T20:00Z
	b := ev("b", event.KindPR, "github.com/x/y", "u", time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC))
	rs := rules.Default()
	rs.Fairness = map[event.Kind]int{event.KindPR: 1}
	got := Score([]event.Event{a, b}, rs, Options{Now: refNow})
	if v := find(t, got, "u", "code"); v != 1.0 {
		t.Fatalf("code = %v, want exactly one pr to count", v)
	}
}
