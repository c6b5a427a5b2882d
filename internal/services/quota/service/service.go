// Package service enforces the optional update-quota tier
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ossmk/internal/platform/config"
	perr "ossmk/internal/platform/errors"
	"ossmk/internal/services/quota/domain"
)

// Config for the quota service
type Config struct {
	// PerDay bounds daily analyze runs per login; 0 disables the tier
	PerDay int
}

// FromConfig reads quota settings; cfg must be scoped to OSSMK_
func FromConfig(cfg config.Conf) Config {
	return Config{PerDay: cfg.MayInt("QUOTA_PER_DAY", 0)}
}

// Service implements domain.PolicyPort
type Service struct {
	repo domain.StorageRepo
	cfg  Config
	now  func() time.Time
}

// New constructs the quota service
func New(repo domain.StorageRepo, cfg Config) *Service {
	return &Service{repo: repo, cfg: cfg, now: time.Now}
}

// Check consumes one update unit for login. With a zero budget the tier
// is disabled and nothing is recorded.
func (s *Service) Check(ctx context.Context, login string) error {
	if s.cfg.PerDay <= 0 {
		return nil
	}
	if err := s.repo.EnsureUser(ctx, login); err != nil {
		return err
	}
	day := s.now().UTC().Format("2006-01-02")
	used, err := s.repo.UsageFor(ctx, login, day)
	if err != nil {
		return err
	}
	if used >= s.cfg.PerDay {
		return perr.Newf(perr.ErrorCodeTooManyRequests,
			"update quota exhausted for %s: %d/%d today", login, used, s.cfg.PerDay)
	}
	return s.repo.IncrementUsage(ctx, login, day)
}

// Snapshot records total for login and awards growth points when the
// delta against the previous snapshot is positive. The first snapshot
// counts in full.
func (s *Service) Snapshot(ctx context.Context, login string, total float64) (domain.SnapshotResult, error) {
	prev, hadPrev, err := s.repo.LatestSnapshot(ctx, login)
	if err != nil {
		return domain.SnapshotResult{}, err
	}

	snap := domain.Snapshot{
		ID:      uuid.NewString(),
		Login:   login,
		Total:   total,
		TakenAt: s.now().UTC(),
	}
	delta := total
	if hadPrev {
		delta = total - prev.Total
	}
	if err := s.repo.RecordSnapshot(ctx, snap, delta); err != nil {
		return domain.SnapshotResult{}, err
	}
	res := domain.SnapshotResult{Snapshot: snap, Delta: delta}
	if delta > 0 {
		res.PointsAwarded = delta
	}
	return res, nil
}
