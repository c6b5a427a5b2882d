package github

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// StatusError wraps non-2xx HTTP responses with a bounded body excerpt
type StatusError struct {
	Status int
	Body   string
}

// Error implements error
func (e *StatusError) Error() string {
	return "github status " + strconv.Itoa(e.Status)
}

// HTTPStatus reports the upstream status code
func (e *StatusError) HTTPStatus() int { return e.Status }

// IsSkippableRepoErr reports whether err is a 404/410/403 for one repo,
// the classes the fan-out treats as best-effort skips
func IsSkippableRepoErr(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusNotFound ||
			se.Status == http.StatusGone ||
			se.Status == http.StatusForbidden
	}
	return false
}

func parseRateHeaders(h http.Header) (remaining int, reset time.Time, retryAfter int) {
	remaining = atoi(h.Get("X-RateLimit-Remaining"))
	if h.Get("X-RateLimit-Remaining") == "" {
		remaining = -1
	}
	if sec := atoi(h.Get("X-RateLimit-Reset")); sec > 0 {
		reset = time.Unix(int64(sec), 0).UTC()
	}
	retryAfter = atoi(h.Get("Retry-After"))
	return
}

// computeWait decides how long to wait before the post-limit retry.
// Retry-After wins; otherwise any reset header marks the response as a
// rate limit regardless of what Remaining reads.
func computeWait(reset time.Time, retryAfter int, now time.Time) time.Duration {
	if retryAfter > 0 {
		return time.Duration(retryAfter) * time.Second
	}
	if reset.IsZero() {
		return 0
	}
	if reset.After(now) {
		return reset.Sub(now)
	}
	// reset already passed; retry immediately but still count the hit
	return time.Millisecond
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	i, _ := strconv.Atoi(s)
	return i
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	return rc.Close()
}

// ParseLinkNext extracts the rel="next" target from a Link header.
// Format: <url1>; rel="next", <url2>; rel="last"; params beyond rel are
// tolerated per the header grammar.
func ParseLinkNext(link string) string {
	if link == "" {
		return ""
	}
	for _, part := range strings.Split(link, ",") {
		segs := strings.Split(part, ";")
		if len(segs) < 2 {
			continue
		}
		target := strings.TrimSpace(segs[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, p := range segs[1:] {
			p = strings.TrimSpace(p)
			if p == `rel="next"` || p == "rel=next" {
				return strings.Trim(target, "<>")
			}
		}
	}
	return ""
}
