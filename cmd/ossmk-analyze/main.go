// Command ossmk-analyze runs the full pipeline for one login:
// fetch, score, and optionally persist with snapshot accounting
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"ossmk/internal/adapters/forge"
	"ossmk/internal/adapters/forge/github"
	"ossmk/internal/core/version"
	"ossmk/internal/platform/config"
	"ossmk/internal/platform/logger"
	analyzedom "ossmk/internal/services/analyze/domain"
	analyzesvc "ossmk/internal/services/analyze/service"
	quotadom "ossmk/internal/services/quota/domain"
	quotasvc "ossmk/internal/services/quota/service"
)

func main() {
	var (
		user    = flag.String("user", "", "forge login to analyze")
		ruleID  = flag.String("rules", "", "rule set: default or a .toml path")
		since   = flag.String("since", "", "lower bound: NNNd, NNNh, or ISO timestamp")
		persist = flag.Bool("persist", false, "store events and scores")
		dsn     = flag.String("dsn", "", "storage DSN (postgres/sqlite/clickhouse)")
		out     = flag.String("out", "", "result path (default stdout)")
		ver     = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *ver {
		info := version.Info()
		fmt.Printf("%s %s (%s, %s)\n", info.Service, info.Version, info.Commit, info.Date)
		return
	}

	logger.Init(logger.FromEnv())
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *user == "" {
		l.Fatal().Msg("-user is required")
	}

	root := config.New()
	scoped := root.Prefix("OSSMK_")

	target := *dsn
	if target == "" {
		target = scoped.MayString("PG_DSN", root.MayString("DATABASE_URL", ""))
	}

	var quota quotadom.PolicyPort
	if *persist {
		if target == "" {
			l.Fatal().Msg("-persist needs -dsn, OSSMK_PG_DSN, or DATABASE_URL")
		}
		qcfg := quotasvc.FromConfig(scoped)
		if qcfg.PerDay > 0 {
			policy, closeQuota, ok, err := quotasvc.OpenPolicy(ctx, target, qcfg)
			if err != nil {
				l.Fatal().Err(err).Msg("quota store failed")
			}
			if ok {
				defer func() { _ = closeQuota(ctx) }()
				quota = policy
			} else {
				l.Warn().Msg("quota tier needs a relational DSN, skipping")
			}
		}
	}

	svc := analyzesvc.New(analyzesvc.Deps{
		Provider: func(ctx context.Context) (forge.Provider, error) {
			p, closeCache, err := github.NewFromEnv(ctx)
			if err != nil {
				return nil, err
			}
			// cache handle lives until process exit
			_ = closeCache
			return p, nil
		},
		Quota: quota,
		Cfg:   scoped,
		Log:   *l,
	})

	res, aerr := svc.Analyze(ctx, analyzedom.Request{
		User:    *user,
		Rules:   *ruleID,
		Since:   *since,
		Persist: *persist,
		DSN:     target,
	})
	if aerr != nil && res.EventsCount == 0 {
		l.Fatal().Err(aerr).Msg("analysis failed")
	}

	w, closeOut, err := openOut(*out)
	if err != nil {
		l.Fatal().Err(err).Str("path", *out).Msg("open output failed")
	}
	defer closeOut()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		l.Fatal().Err(err).Msg("write result failed")
	}

	if aerr != nil {
		// computed result was written; persistence still failed
		l.Fatal().Err(aerr).Msg("analysis persisted partially")
	}
	l.Info().Str("login", *user).Int("events", res.EventsCount).Msg("analysis complete")
}

func openOut(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
