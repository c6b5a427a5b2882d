package github

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ossmk/internal/adapters/forge/httpcache"
	"ossmk/internal/core/event"
	perr "ossmk/internal/platform/errors"
)

const fallbackLogin = "unknown"

// cachedGet performs one conditional GET. On 304 the cached body is
// replayed and its fetched_at refreshed; on 2xx the fresh body is stored.
// next is the Link rel="next" target, empty on the last page.
func (p *Provider) cachedGet(ctx context.Context, u string) (body []byte, next string, err error) {
	var cond Conditional
	var cached httpcache.Entry
	var hit bool
	if p.cache != nil {
		cached, hit, err = p.cache.Get(ctx, u)
		if err != nil {
			return nil, "", err
		}
		if hit {
			cond = Conditional{ETag: cached.ETag, LastModified: cached.LastModified}
		}
	}

	resp, err := p.client.Do(ctx, http.MethodGet, u, cond, nil)
	if err != nil {
		return nil, "", err
	}
	next = ParseLinkNext(resp.Header.Get("Link"))

	if resp.StatusCode == http.StatusNotModified {
		_ = drainAndClose(resp.Body)
		cached.FetchedAt = p.client.now()
		if p.cache != nil {
			if perr2 := p.cache.Put(ctx, cached); perr2 != nil {
				p.log.Warn().Err(perr2).Str("url", u).Msg("cache refresh failed")
			}
		}
		return cached.Body, next, nil
	}

	body, err = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, "", perr.Wrapf(err, perr.ErrorCodeNetwork, "github read body")
	}
	if p.cache != nil {
		e := httpcache.Entry{
			URL:          u,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			Body:         body,
			FetchedAt:    p.client.now(),
		}
		if perr2 := p.cache.Put(ctx, e); perr2 != nil {
			p.log.Warn().Err(perr2).Str("url", u).Msg("cache store failed")
		}
	}
	return body, next, nil
}

// getAllPages walks a paginated listing to exhaustion, invoking each per page
func (p *Provider) getAllPages(ctx context.Context, first string, each func(body []byte) (stop bool, err error)) error {
	u := first
	for u != "" {
		body, next, err := p.cachedGet(ctx, u)
		if err != nil {
			return err
		}
		stop, err := each(body)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
		u = next
	}
	return nil
}

// UserRepos lists full names of repos owned by login, most recently
// updated first
func (p *Provider) UserRepos(ctx context.Context, login string) ([]string, error) {
	var out []string
	first := "/users/" + url.PathEscape(login) + "/repos?per_page=100&type=owner&sort=updated"
	err := p.getAllPages(ctx, first, func(body []byte) (bool, error) {
		var items []repoItem
		if err := json.Unmarshal(body, &items); err != nil {
			return false, perr.Wrapf(err, perr.ErrorCodeJSON, "github repos decode")
		}
		for _, it := range items {
			if it.FullName != "" {
				out = append(out, it.FullName)
			}
		}
		return len(out) >= p.opts.MaxRepos, nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) > p.opts.MaxRepos {
		out = out[:p.opts.MaxRepos]
	}
	return out, nil
}

// RepoIssues returns issue and pr events for one repo. The issues listing
// includes pull requests; the pull_request key tells them apart.
func (p *Provider) RepoIssues(ctx context.Context, owner, name string) ([]event.Event, error) {
	repoID := repoEventID(owner, name)
	var out []event.Event
	first := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(name) + "/issues?state=all&per_page=100"
	err := p.getAllPages(ctx, first, func(body []byte) (bool, error) {
		var items []issueItem
		if err := json.Unmarshal(body, &items); err != nil {
			return false, perr.Wrapf(err, perr.ErrorCodeJSON, "github issues decode")
		}
		for _, it := range items {
			login := loginOf(it.User)
			if p.dropLogin(login) {
				continue
			}
			kind := event.KindIssue
			if it.PullRequest != nil {
				kind = event.KindPR
			}
			out = append(out, event.Event{
				ID:        strconv.FormatInt(it.ID, 10),
				Kind:      kind,
				RepoID:    repoID,
				UserID:    login,
				CreatedAt: it.CreatedAt,
			})
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RepoCommits returns commit events, bounded by since when non-empty.
// since must already be an API-acceptable timestamp or relative marker
// normalized upstream.
func (p *Provider) RepoCommits(ctx context.Context, owner, name, since string) ([]event.Event, error) {
	repoID := repoEventID(owner, name)
	first := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(name) + "/commits?per_page=100"
	if since != "" {
		first += "&since=" + url.QueryEscape(since)
	}
	var out []event.Event
	err := p.getAllPages(ctx, first, func(body []byte) (bool, error) {
		var items []commitItem
		if err := json.Unmarshal(body, &items); err != nil {
			return false, perr.Wrapf(err, perr.ErrorCodeJSON, "github commits decode")
		}
		for _, it := range items {
			login := commitLogin(it)
			if p.dropLogin(login) {
				continue
			}
			ev := event.Event{
				ID:        it.SHA,
				Kind:      event.KindCommit,
				RepoID:    repoID,
				UserID:    login,
				CreatedAt: it.Commit.Author.Date,
			}
			if it.Stats != nil {
				ev.LinesAdded = it.Stats.Additions
				ev.LinesRemoved = it.Stats.Deletions
			}
			out = append(out, ev)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RepoReviews returns review events across the most recently updated pull
// requests, up to maxPRs
func (p *Provider) RepoReviews(ctx context.Context, owner, name string, maxPRs int) ([]event.Event, error) {
	if maxPRs <= 0 {
		maxPRs = defaultMaxPRs
	}
	numbers, err := p.repoPulls(ctx, owner, name, maxPRs)
	if err != nil {
		return nil, err
	}

	repoID := repoEventID(owner, name)
	base := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(name) + "/pulls/"
	var out []event.Event
	for _, num := range numbers {
		first := base + strconv.Itoa(num) + "/reviews?per_page=100"
		err := p.getAllPages(ctx, first, func(body []byte) (bool, error) {
			var items []reviewItem
			if err := json.Unmarshal(body, &items); err != nil {
				return false, perr.Wrapf(err, perr.ErrorCodeJSON, "github reviews decode")
			}
			for _, it := range items {
				login := loginOf(it.User)
				if p.dropLogin(login) {
					continue
				}
				ev := event.Event{
					ID:     strconv.FormatInt(it.ID, 10),
					Kind:   event.KindReview,
					RepoID: repoID,
					UserID: login,
				}
				switch {
				case it.SubmittedAt != nil:
					ev.CreatedAt = *it.SubmittedAt
				case it.CreatedAt != nil:
					ev.CreatedAt = *it.CreatedAt
				}
				out = append(out, ev)
			}
			return false, nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// repoPulls lists pull numbers, most recently updated first, capped at maxPRs
func (p *Provider) repoPulls(ctx context.Context, owner, name string, maxPRs int) ([]int, error) {
	var out []int
	first := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(name) + "/pulls?state=all&per_page=100&sort=updated"
	err := p.getAllPages(ctx, first, func(body []byte) (bool, error) {
		var items []pullItem
		if err := json.Unmarshal(body, &items); err != nil {
			return false, perr.Wrapf(err, perr.ErrorCodeJSON, "github pulls decode")
		}
		for _, it := range items {
			out = append(out, it.Number)
		}
		return len(out) >= maxPRs, nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) > maxPRs {
		out = out[:maxPRs]
	}
	return out, nil
}

func repoEventID(owner, name string) string {
	return event.RepoRef{Host: event.DefaultHost, Owner: owner, Name: name}.ID()
}

func loginOf(a *actor) string {
	if a == nil || a.Login == "" {
		return fallbackLogin
	}
	return a.Login
}

func commitLogin(it commitItem) string {
	if it.Author != nil && it.Author.Login != "" {
		return it.Author.Login
	}
	if it.Committer != nil && it.Committer.Login != "" {
		return it.Committer.Login
	}
	return fallbackLogin
}

func splitFullName(full string) (owner, name string, ok bool) {
	i := strings.IndexByte(full, '/')
	if i <= 0 || i == len(full)-1 {
		return "", "", false
	}
	return full[:i], full[i+1:], true
}
