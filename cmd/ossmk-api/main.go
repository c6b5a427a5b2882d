// Command ossmk-api serves the analyze endpoint plus health and metrics
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ossmk/internal/adapters/forge"
	"ossmk/internal/adapters/forge/github"
	"ossmk/internal/core/version"
	"ossmk/internal/modkit"
	"ossmk/internal/modkit/module"
	"ossmk/internal/platform/config"
	"ossmk/internal/platform/logger"
	"ossmk/internal/platform/metrics"
	phttp "ossmk/internal/platform/net/http"
	"ossmk/internal/platform/net/middleware"
	analyzemod "ossmk/internal/services/analyze/module"
	analyzesvc "ossmk/internal/services/analyze/service"
	quotadom "ossmk/internal/services/quota/domain"
	quotasvc "ossmk/internal/services/quota/service"
	storagemod "ossmk/internal/services/storage/module"
)

func main() {
	logger.Init(logger.FromEnv())
	l := logger.Get()

	info := version.Info()
	l.Info().Str("version", info.Version).Str("commit", info.Commit).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := config.New()
	scoped := root.Prefix("OSSMK_")
	apiCfg := root.Prefix("OSSMK_API_")

	var quota quotadom.PolicyPort
	if dsn := scoped.MayString("PG_DSN", root.MayString("DATABASE_URL", "")); dsn != "" {
		if qcfg := quotasvc.FromConfig(scoped); qcfg.PerDay > 0 {
			policy, closeQuota, ok, err := quotasvc.OpenPolicy(ctx, dsn, qcfg)
			if err != nil {
				l.Panic().Err(err).Msg("quota store failed")
			}
			if ok {
				defer func() { _ = closeQuota(ctx) }()
				quota = policy
			}
		}
	}

	deps := modkit.Deps{Log: *l, Cfg: scoped}

	// one provider for the process; the cache handle closes with it
	provider, closeCache, err := github.NewFromEnv(ctx)
	if err != nil {
		l.Panic().Err(err).Msg("provider setup failed")
	}
	defer func() { _ = closeCache(context.Background()) }()

	analyzer := analyzesvc.New(analyzesvc.Deps{
		Provider: func(context.Context) (forge.Provider, error) {
			return provider, nil
		},
		Quota: quota,
		Cfg:   scoped,
		Log:   *l,
	})

	srv := phttp.NewServer(apiCfg)
	r := srv.Router()

	r.Use(middleware.RequestID())
	r.Use(middleware.RealIP())
	r.Use(middleware.AccessLogZerolog(middleware.AccessLogOptions{}))
	r.Use(middleware.RecoverJSON)
	r.Use(middleware.CORS(middleware.CORSOptions{
		AllowedOrigins: apiCfg.MayCSV("CORS_ORIGINS", []string{"*"}),
	}))
	r.Use(middleware.Quota(middleware.QuotaOptions{
		// refill is configured per minute; the bucket ticks per second
		Rate:  apiCfg.MayFloat64("QUOTA_RATE", 0) / 60,
		Burst: apiCfg.MayInt("QUOTA_BURST", 10),
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		phttp.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	mods := []module.Module{
		analyzemod.New(deps, analyzer),
		storagemod.New(deps),
	}
	for _, m := range mods {
		m.MountRoutes(r)
		module.Register(m.Name(), m.Ports())
		l.Info().Str("module", m.Name()).Msg("module mounted")
	}

	go func() {
		<-ctx.Done()
		l.Info().Msg("shutting down")
		_ = srv.Shutdown(context.Background())
	}()

	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
