package event

import (
	"strings"

	perr "ossmk/internal/platform/errors"
)

// DefaultHost is the forge host assumed when none is present
const DefaultHost = "github.com"

// RepoRef is the parsed form of a repo_id
type RepoRef struct {
	Host  string
	Name  string
	Owner string
}

// ID renders the canonical host/owner/name form
func (r RepoRef) ID() string { return r.Host + "/" + r.Owner + "/" + r.Name }

// ParseRepoID splits a host/owner/name identifier. Two segments are accepted
// as owner/name with the default host. Anything else is malformed.
func ParseRepoID(id string) (RepoRef, error) {
	parts := strings.Split(strings.TrimSpace(id), "/")
	switch len(parts) {
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return RepoRef{}, perr.InvalidArgf("malformed repo id %q", id)
		}
		return RepoRef{Host: DefaultHost, Owner: parts[0], Name: parts[1]}, nil
	case 3:
		if parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return RepoRef{}, perr.InvalidArgf("malformed repo id %q", id)
		}
		return RepoRef{Host: parts[0], Owner: parts[1], Name: parts[2]}, nil
	}
	return RepoRef{}, perr.InvalidArgf("malformed repo id %q", id)
}
