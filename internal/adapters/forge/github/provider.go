package github

import (
	"context"
	"sort"
	"sync"

	"ossmk/internal/adapters/forge"
	"ossmk/internal/adapters/forge/httpcache"
	"ossmk/internal/core/event"
	"ossmk/internal/platform/config"
	"ossmk/internal/platform/logger"

	"golang.org/x/sync/errgroup"
)

// Mode selects which API surface drives UserEvents
type Mode string

// API modes. Auto favors the concurrent REST path for breadth of data;
// GraphQL covers issues and prs in fewer round trips but has no commit
// or review data in the search connection.
const (
	ModeREST    Mode = "rest"
	ModeGraphQL Mode = "graphql"
	ModeAuto    Mode = "auto"
)

const (
	defaultConcurrency = 5
	maxConcurrency     = 20
	defaultMaxRepos    = 20
	defaultMaxPRs      = 50
)

// ProviderOptions tunes the fetch behavior
type ProviderOptions struct {
	Mode        Mode
	Concurrency int
	MaxRepos    int
	MaxPRs      int
	ExcludeBots bool
}

// Provider implements forge.Provider against GitHub
type Provider struct {
	client *Client
	cache  *httpcache.Cache
	opts   ProviderOptions
	log    logger.Logger
}

var _ forge.Provider = (*Provider)(nil)

// NewProvider wires a client and an optional response cache.
// cache may be nil; every fetch then goes to the network.
func NewProvider(client *Client, cache *httpcache.Cache, opts ProviderOptions) *Provider {
	if opts.Mode == "" {
		opts.Mode = ModeAuto
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Concurrency > maxConcurrency {
		opts.Concurrency = maxConcurrency
	}
	if opts.MaxRepos <= 0 {
		opts.MaxRepos = defaultMaxRepos
	}
	if opts.MaxPRs <= 0 {
		opts.MaxPRs = defaultMaxPRs
	}
	return &Provider{
		client: client,
		cache:  cache,
		opts:   opts,
		log:    *logger.Named("github"),
	}
}

// OptionsFromConfig reads provider tuning from env. cfg must be scoped
// to the OSSMK_ namespace.
func OptionsFromConfig(cfg config.Conf) ProviderOptions {
	return ProviderOptions{
		Mode:        Mode(cfg.MayEnum("API_MODE", string(ModeAuto), string(ModeAuto), string(ModeREST), string(ModeGraphQL))),
		Concurrency: cfg.MayInt("CONCURRENCY", defaultConcurrency),
		MaxRepos:    cfg.MayInt("MAX_REPOS", defaultMaxRepos),
		MaxPRs:      cfg.MayInt("MAX_PRS", defaultMaxPRs),
		ExcludeBots: cfg.MayBool("EXCLUDE_BOTS", true),
	}
}

// ID names the forge
func (p *Provider) ID() string { return "github" }

// UserEvents fetches login's contribution events. The REST path walks the
// user's repos concurrently; the GraphQL path runs a single search cursor
// loop. Results are deduplicated and bot authors dropped when configured.
func (p *Provider) UserEvents(ctx context.Context, login, since string) ([]event.Event, error) {
	var (
		evs []event.Event
		err error
	)
	switch p.opts.Mode {
	case ModeGraphQL:
		evs, err = p.graphqlUserEvents(ctx, login)
	default:
		evs, err = p.restUserEvents(ctx, login, since)
	}
	if err != nil {
		return nil, err
	}
	return p.finalize(evs), nil
}

// dropLogin reports whether the bot filter excludes login. The check
// runs at mapping time so repo-level operations never emit bot events.
func (p *Provider) dropLogin(login string) bool {
	return p.opts.ExcludeBots && event.IsBotLogin(login)
}

// finalize applies the bot filter and dedupe, then orders events
// deterministically. The filter repeats here for paths that map events
// outside the REST mappers, the GraphQL search included.
func (p *Provider) finalize(evs []event.Event) []event.Event {
	if p.opts.ExcludeBots {
		kept := evs[:0]
		for _, e := range evs {
			if event.IsBotLogin(e.UserID) {
				continue
			}
			kept = append(kept, e)
		}
		evs = kept
	}
	evs = event.Dedupe(evs)
	sort.SliceStable(evs, func(i, j int) bool {
		if evs[i].CreatedAt.Equal(evs[j].CreatedAt) {
			return evs[i].ID < evs[j].ID
		}
		return evs[i].CreatedAt.Before(evs[j].CreatedAt)
	})
	return evs
}

// restUserEvents fans out over the user's repos with bounded concurrency.
// Missing or blocked repos are skipped; anything else aborts the run.
func (p *Provider) restUserEvents(ctx context.Context, login, since string) ([]event.Event, error) {
	repos, err := p.UserRepos(ctx, login)
	if err != nil {
		return nil, err
	}
	if len(repos) > p.opts.MaxRepos {
		repos = repos[:p.opts.MaxRepos]
	}

	var (
		mu  sync.Mutex
		out []event.Event
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for _, full := range repos {
		full := full
		g.Go(func() error {
			owner, name, ok := splitFullName(full)
			if !ok {
				p.log.Warn().Str("repo", full).Msg("skipping malformed repo name")
				return nil
			}
			evs, err := p.repoEvents(gctx, owner, name, since)
			if err != nil {
				if IsSkippableRepoErr(err) {
					p.log.Warn().Str("repo", full).Err(err).Msg("skipping inaccessible repo")
					return nil
				}
				return err
			}
			mu.Lock()
			out = append(out, evs...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// repoEvents collects issues, commits, and reviews for one repo
func (p *Provider) repoEvents(ctx context.Context, owner, name, since string) ([]event.Event, error) {
	var out []event.Event

	issues, err := p.RepoIssues(ctx, owner, name)
	if err != nil {
		return nil, err
	}
	out = append(out, issues...)

	commits, err := p.RepoCommits(ctx, owner, name, since)
	if err != nil {
		return nil, err
	}
	out = append(out, commits...)

	reviews, err := p.RepoReviews(ctx, owner, name, p.opts.MaxPRs)
	if err != nil {
		return nil, err
	}
	out = append(out, reviews...)
	return out, nil
}
