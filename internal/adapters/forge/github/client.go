// Package github implements the forge capability surface against the
// GitHub REST v3 and GraphQL v4 APIs
package github

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	perr "ossmk/internal/platform/errors"
	"ossmk/internal/platform/logger"
	"ossmk/internal/platform/metrics"
)

const (
	baseURLDefault   = "https://api.github.com"
	defaultTimeout   = 30 * time.Second
	defaultUA        = "ossmk"
	defaultMaxRetry  = 5
	defaultRetryBase = 1 * time.Second
	defaultRetryCap  = 10 * time.Second
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Token is the bearer credential (PAT or installation token)
	Token string

	// Retry config for transient responses
	MaxRetries int
	RetryBase  time.Duration
	RetryCap   time.Duration
}

// Conditional carries validators from a cached entry
type Conditional struct {
	ETag         string
	LastModified string
}

// Client is a resilient GitHub HTTP client with conditional requests,
// exponential backoff, and rate-limit reset handling
type Client struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.RetryCap <= 0 {
		o.RetryCap = defaultRetryCap
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("github"),
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// BaseURL returns the configured API root
func (c *Client) BaseURL() string { return c.opts.BaseURL }

// resolve turns a path into a full URL; absolute URLs (from Link headers)
// pass through untouched
func (c *Client) resolve(pathOrURL string) string {
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		return pathOrURL
	}
	return c.opts.BaseURL + pathOrURL
}

// Do issues a request with auth, conditional validators, retries, and
// rate-limit handling. body is re-sent verbatim on every attempt.
// 304 responses are returned as-is; the caller substitutes the cached body.
func (c *Client) Do(ctx context.Context, method, pathOrURL string, cond Conditional, body []byte) (*http.Response, error) {
	fullURL := c.resolve(pathOrURL)
	host := hostOf(fullURL)

	attempts := 0
	limitHits := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var rdr io.Reader
		if body != nil {
			rdr = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, rdr)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "github new request")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/vnd.github+json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if cond.ETag != "" {
			req.Header.Set("If-None-Match", cond.ETag)
		}
		if cond.LastModified != "" {
			req.Header.Set("If-Modified-Since", cond.LastModified)
		}
		if c.opts.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.opts.Token)
		}

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)

		if err != nil {
			metrics.ObserveRequest(host, method, 0, lat)
			if !c.shouldRetry(attempts) {
				return nil, perr.Wrapf(err, perr.ErrorCodeNetwork, "github do")
			}
			back := c.backoff(attempts)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempts).Msg("github transport error retrying")
			if serr := c.sleep(ctx, back); serr != nil {
				return nil, serr
			}
			attempts++
			continue
		}

		metrics.ObserveRequest(host, method, resp.StatusCode, lat)
		rem, reset, retryAfter := parseRateHeaders(resp.Header)
		c.log.Debug().
			Str("method", method).
			Str("url", fullURL).
			Int("status", resp.StatusCode).
			Int("attempt", attempts).
			Dur("latency", lat).
			Int("rate_remaining", rem).
			Time("rate_reset", reset).
			Msg("github http response")

		switch {
		case resp.StatusCode == http.StatusNotModified:
			return resp, nil
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden:
			wait := computeWait(reset, retryAfter, c.now())
			if wait <= 0 {
				// a plain 403 without limit headers is a real denial
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
				_ = resp.Body.Close()
				return nil, perr.Wrap(
					&StatusError{Status: resp.StatusCode, Body: string(body)},
					perr.ErrorCodeForbidden, "github forbidden")
			}
			limitHits++
			if limitHits > 1 {
				_ = drainAndClose(resp.Body)
				return nil, perr.RateLimitedf("github rate limited after reset wait")
			}
			// sleep to reset + 1s, retry without consuming a backoff attempt
			wait += time.Second
			c.log.Warn().Dur("sleep", wait).Msg("github rate limited waiting for reset")
			_ = drainAndClose(resp.Body)
			if serr := c.sleep(ctx, wait); serr != nil {
				return nil, serr
			}
			continue

		case resp.StatusCode >= 500:
			if !c.shouldRetry(attempts) {
				_ = drainAndClose(resp.Body)
				return nil, perr.Unavailablef("github server error %d", resp.StatusCode)
			}
			back := c.backoff(attempts)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempts).Int("status", resp.StatusCode).
				Msg("github transient error retrying")
			_ = drainAndClose(resp.Body)
			if serr := c.sleep(ctx, back); serr != nil {
				return nil, serr
			}
			attempts++
			continue

		default:
			// other 4xx fail fast with a bounded excerpt
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			return nil, perr.Wrapf(
				&StatusError{Status: resp.StatusCode, Body: string(body)},
				perr.ErrorCodeInvalidArgument, "github status %d", resp.StatusCode)
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.RetryBase << uint(attempt)
	if d > c.opts.RetryCap {
		d = c.opts.RetryCap
	}
	return d
}

func (c *Client) shouldRetry(attempt int) bool {
	return attempt+1 < c.opts.MaxRetries
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
