package github

import (
	"context"
	"time"

	"ossmk/internal/adapters/forge/httpcache"
	"ossmk/internal/core/version"
	"ossmk/internal/platform/config"
	"ossmk/internal/platform/logger"
)

// NewFromEnv assembles a provider from the environment: credentials,
// the on-disk response cache, and fetch tuning. The returned close func
// releases the cache handle; the provider works without a cache when the
// cache cannot be opened.
func NewFromEnv(ctx context.Context) (*Provider, func(context.Context) error, error) {
	root := config.New()
	scoped := root.Prefix("OSSMK_")

	token, err := ResolveToken(ctx, root, "")
	if err != nil {
		return nil, nil, err
	}

	info := version.Info()
	client := NewClient(Options{
		Token:     token,
		UserAgent: info.Service + "/" + info.Version,
		Timeout:   scoped.MayDuration("HTTP_TIMEOUT", 30*time.Second),
	})

	closeCache := func(context.Context) error { return nil }
	var cache *httpcache.Cache
	if c, closer, cerr := httpcache.Open(ctx, httpcache.DefaultPath(scoped)); cerr != nil {
		logger.Named("github").Warn().Err(cerr).Msg("response cache unavailable, fetching uncached")
	} else {
		cache, closeCache = c, closer
	}

	return NewProvider(client, cache, OptionsFromConfig(scoped)), closeCache, nil
}
