// Package service runs the analyze pipeline
package service

import (
	"context"
	"time"

	"ossmk/internal/adapters/forge"
	"ossmk/internal/core/event"
	"ossmk/internal/core/rules"
	"ossmk/internal/core/score"
	"ossmk/internal/platform/config"
	perr "ossmk/internal/platform/errors"
	"ossmk/internal/platform/logger"
	"ossmk/internal/platform/timeparse"
	"ossmk/internal/services/analyze/domain"
	quotadom "ossmk/internal/services/quota/domain"
	storagedom "ossmk/internal/services/storage/domain"
	storagesvc "ossmk/internal/services/storage/service"
)

// Deps are the seams the pipeline runs through
type Deps struct {
	// Provider resolves a fetch-capable forge. Callers decide whether to
	// share one instance across runs or rebuild per call.
	Provider func(ctx context.Context) (forge.Provider, error)

	// Quota enforces the optional update tier; nil disables it
	Quota quotadom.PolicyPort

	// OpenBackend dials persistence; defaults to the storage service
	OpenBackend func(ctx context.Context, dsn string) (storagedom.Backend, error)

	// Cfg must be scoped to OSSMK_
	Cfg config.Conf

	Log logger.Logger
}

// Service implements domain.AnalyzerPort
type Service struct {
	deps Deps
	now  func() time.Time
}

// New constructs the analyze service
func New(deps Deps) *Service {
	if deps.OpenBackend == nil {
		deps.OpenBackend = storagesvc.Open
	}
	return &Service{deps: deps, now: time.Now}
}

// Analyze runs the pipeline for one login: quota gate, fetch, score, then
// optional persist and snapshot. Persist failures surface as the returned
// error with the computed result still populated.
func (s *Service) Analyze(ctx context.Context, req domain.Request) (domain.AnalysisResult, error) {
	if req.User == "" {
		return domain.AnalysisResult{}, perr.InvalidArgf("analyze: user required")
	}

	if req.Persist && s.deps.Quota != nil {
		if err := s.deps.Quota.Check(ctx, req.User); err != nil {
			return domain.AnalysisResult{}, err
		}
	}

	provider, err := s.deps.Provider(ctx)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	now := s.now().UTC()
	since := timeparse.Since(req.Since, now, s.deps.Cfg.MayInt("SINCE_MAX_DAYS", 0))

	evs, err := provider.UserEvents(ctx, req.User, since)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	rs, err := rules.Resolve(req.Rules)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	opts := score.FromConfig(s.deps.Cfg, now)
	scores := score.Score(evs, rs, opts)

	res := domain.AnalysisResult{
		User:        req.User,
		EventsCount: len(evs),
		Events:      evs,
		Scores:      scores,
		Summary:     summarize(req.User, evs, scores),
	}

	if !req.Persist {
		return res, nil
	}

	dsn := req.DSN
	if dsn == "" {
		dsn = s.defaultDSN()
	}
	backend, err := s.deps.OpenBackend(ctx, dsn)
	if err != nil {
		return res, err
	}
	defer func() {
		if cerr := backend.Close(ctx); cerr != nil {
			s.deps.Log.Warn().Err(cerr).Msg("storage close failed")
		}
	}()

	rep, err := storagesvc.Save(ctx, backend, evs, scores)
	if err != nil {
		return res, err
	}
	s.deps.Log.Info().
		Str("login", req.User).
		Int("events_seen", rep.EventsSeen).
		Int64("events_inserted", rep.EventsInserted).
		Int("scores_written", rep.ScoresWritten).
		Msg("analysis persisted")

	if s.deps.Quota != nil {
		total := userTotal(req.User, scores)
		snap, err := s.deps.Quota.Snapshot(ctx, req.User, total)
		if err != nil {
			return res, err
		}
		s.deps.Log.Info().
			Str("login", req.User).
			Float64("delta", snap.Delta).
			Float64("points", snap.PointsAwarded).
			Msg("snapshot recorded")
	}
	return res, nil
}

// defaultDSN falls back from OSSMK_PG_DSN to the conventional DATABASE_URL
func (s *Service) defaultDSN() string {
	if dsn := s.deps.Cfg.MayString("PG_DSN", ""); dsn != "" {
		return dsn
	}
	return config.New().MayString("DATABASE_URL", "")
}

// summarize folds per-dimension totals over every subject in scores
func summarize(login string, evs []event.Event, scores []event.Score) domain.Summary {
	byDim := make(map[string]float64, 4)
	for _, s := range scores {
		byDim[s.Dimension] += s.Value
	}
	return domain.Summary{Login: login, TotalEvents: len(evs), ScoresByDimension: byDim}
}

// userTotal sums the login's own dimension values for snapshot accounting
func userTotal(login string, scores []event.Score) float64 {
	var total float64
	for _, s := range scores {
		if s.UserID == login {
			total += s.Value
		}
	}
	return total
}
