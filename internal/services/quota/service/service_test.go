package service

import (
	"context"
	"testing"
	"time"

	"ossmk/internal/platform/config"
	perr "ossmk/internal/platform/errors"
	"ossmk/internal/platform/store"
	"ossmk/internal/services/quota/repo"
)

func newService(t *testing.T, perDay int) *Service {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, store.Config{Lite: store.LiteConfig{Enabled: true, Path: ":memory:"}})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(ctx) })

	r := repo.NewSQL(st.Lite)
	if err := r.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return New(r, Config{PerDay: perDay})
}

func TestCheckDisabledTierIsNoop(t *testing.T) {
	s := newService(t, 0)
	ctx := context.Background()
	for range 100 {
		if err := s.Check(ctx, "alice"); err != nil {
			t.Fatalf("disabled tier must never deny: %v", err)
		}
	}
}

func TestCheckExhaustsDailyBudget(t *testing.T) {
	s := newService(t, 2)
	ctx := context.Background()

	if err := s.Check(ctx, "alice"); err != nil {
		t.Fatalf("first check: %v", err)
	}
	if err := s.Check(ctx, "alice"); err != nil {
		t.Fatalf("second check: %v", err)
	}
	err := s.Check(ctx, "alice")
	if err == nil {
		t.Fatal("third check should be denied")
	}
	if perr.CodeOf(err) != perr.ErrorCodeTooManyRequests {
		t.Fatalf("code = %v, want too many requests", perr.CodeOf(err))
	}

	// a different login has its own budget
	if err := s.Check(ctx, "bob"); err != nil {
		t.Fatalf("independent login denied: %v", err)
	}
}

func TestCheckBudgetResetsNextDay(t *testing.T) {
	s := newService(t, 1)
	ctx := context.Background()

	day1 := time.Date(2026, 4, 1, 23, 59, 0, 0, time.UTC)
	s.now = func() time.Time { return day1 }
	if err := s.Check(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	if err := s.Check(ctx, "alice"); err == nil {
		t.Fatal("budget should be spent")
	}

	s.now = func() time.Time { return day1.Add(2 * time.Minute) } // crosses midnight
	if err := s.Check(ctx, "alice"); err != nil {
		t.Fatalf("new day should reset the budget: %v", err)
	}
}

func TestSnapshotFirstDeltaCountsInFull(t *testing.T) {
	s := newService(t, 0)
	ctx := context.Background()

	res, err := s.Snapshot(ctx, "alice", 12.5)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if res.Delta != 12.5 || res.PointsAwarded != 12.5 {
		t.Fatalf("first snapshot result = %+v", res)
	}
	if res.Snapshot.ID == "" {
		t.Fatal("snapshot id must be set")
	}
}

func TestSnapshotAwardsOnlyPositiveDeltas(t *testing.T) {
	s := newService(t, 0)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	tick := 0
	s.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	if _, err := s.Snapshot(ctx, "alice", 10); err != nil {
		t.Fatal(err)
	}
	res, err := s.Snapshot(ctx, "alice", 16)
	if err != nil {
		t.Fatal(err)
	}
	if res.Delta != 6 || res.PointsAwarded != 6 {
		t.Fatalf("growth result = %+v", res)
	}

	res, err = s.Snapshot(ctx, "alice", 13)
	if err != nil {
		t.Fatal(err)
	}
	if res.Delta != -3 || res.PointsAwarded != 0 {
		t.Fatalf("negative delta must award nothing: %+v", res)
	}
}

func TestFromConfig(t *testing.T) {
	t.Setenv("OSSMK_QUOTA_PER_DAY", "3")
	if got := FromConfig(config.New().Prefix("OSSMK_")); got.PerDay != 3 {
		t.Fatalf("config = %+v", got)
	}
}
