package github

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"ossmk/internal/core/event"
	perr "ossmk/internal/platform/errors"
)

const searchQuery = `
query($q: String!, $after: String) {
  search(query: $q, type: ISSUE, first: 100, after: $after) {
    pageInfo { hasNextPage endCursor }
    nodes {
      __typename
      ... on Issue {
        id number createdAt
        author { login }
        repository { nameWithOwner }
      }
      ... on PullRequest {
        id number createdAt
        author { login }
        repository { nameWithOwner }
      }
    }
  }
}`

// graphqlUserEvents walks the search connection for login's public issues
// and pull requests. Commits and reviews are not exposed by this surface.
func (p *Provider) graphqlUserEvents(ctx context.Context, login string) ([]event.Event, error) {
	var (
		out   []event.Event
		after string
	)
	for {
		resp, err := p.graphqlSearch(ctx, login, after)
		if err != nil {
			return nil, err
		}
		if len(resp.Errors) > 0 {
			return nil, perr.Newf(perr.ErrorCodeUnavailable, "github graphql: %s", resp.Errors[0].Message)
		}
		for _, node := range resp.Data.Search.Nodes {
			ev, ok := mapGQLNode(node)
			if !ok {
				continue
			}
			out = append(out, ev)
		}
		if !resp.Data.Search.PageInfo.HasNextPage {
			return out, nil
		}
		after = resp.Data.Search.PageInfo.EndCursor
	}
}

func (p *Provider) graphqlSearch(ctx context.Context, login, after string) (*gqlResponse, error) {
	vars := map[string]any{"q": "author:" + login + " is:public"}
	if after != "" {
		vars["after"] = after
	}
	payload, err := json.Marshal(map[string]any{
		"query":     searchQuery,
		"variables": vars,
	})
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "github graphql marshal")
	}

	httpResp, err := p.client.Do(ctx, http.MethodPost, "/graphql", Conditional{}, payload)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(httpResp.Body)
	_ = httpResp.Body.Close()
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeNetwork, "github graphql read")
	}

	var out gqlResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "github graphql decode")
	}
	return &out, nil
}

// mapGQLNode converts one search node to an event; unknown typenames and
// nodes without a repository are dropped
func mapGQLNode(n gqlNode) (event.Event, bool) {
	var kind event.Kind
	switch n.Typename {
	case "Issue":
		kind = event.KindIssue
	case "PullRequest":
		kind = event.KindPR
	default:
		return event.Event{}, false
	}
	if n.Repository.NameWithOwner == "" || !strings.Contains(n.Repository.NameWithOwner, "/") {
		return event.Event{}, false
	}
	ev := event.Event{
		ID:     n.ID,
		Kind:   kind,
		RepoID: event.DefaultHost + "/" + n.Repository.NameWithOwner,
		UserID: loginOf(n.Author),
	}
	if n.CreatedAt != nil {
		ev.CreatedAt = *n.CreatedAt
	}
	return ev, true
}
