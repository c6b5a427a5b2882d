package middleware

import (
	stdjson "encoding/json"
	stdhttp "net/http"
	"net"
	"strings"
	"sync"
	"time"

	perr "ossmk/internal/platform/errors"
	"ossmk/internal/platform/logger"
	pnet "ossmk/internal/platform/net"
)

// QuotaOptions configures the per-client token bucket.
// Rate is tokens refilled per second; Burst is the bucket capacity.
// A zero or negative Rate disables the limiter entirely.
type QuotaOptions struct {
	Rate  float64
	Burst int
}

type bucket struct {
	tokens float64
	last   time.Time
}

type limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64
	burst   float64
	now     func() time.Time
}

func newLimiter(opt QuotaOptions) *limiter {
	b := float64(opt.Burst)
	if b < 1 {
		b = 1
	}
	return &limiter{
		buckets: make(map[string]*bucket),
		rate:    opt.Rate,
		burst:   b,
		now:     time.Now,
	}
}

// allow takes one token from key's bucket, refilling by elapsed time first
func (l *limiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, last: now}
		l.buckets[key] = b
	}

	b.tokens += now.Sub(b.last).Seconds() * l.rate
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// clientKey prefers the first X-Forwarded-For hop, falling back to RemoteAddr
func clientKey(r *stdhttp.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type quotaWire struct {
	StatusCode int    `json:"status_code"`
	Status     string `json:"status"`
	Error      string `json:"error"`
	RequestID  string `json:"request_id,omitempty"`
}

// Quota rejects clients exceeding a per-IP token bucket with a JSON 429.
// With Rate <= 0 the middleware is a pass-through.
func Quota(opt QuotaOptions) func(stdhttp.Handler) stdhttp.Handler {
	lim := newLimiter(opt)
	return func(next stdhttp.Handler) stdhttp.Handler {
		if opt.Rate <= 0 {
			return next
		}
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			key := clientKey(r)
			if lim.allow(key) {
				next.ServeHTTP(w, r)
				return
			}

			reqID := pnet.RequestID(r.Context())
			logger.C(r.Context()).Warn().
				Str("client", key).
				Str("path", r.URL.Path).
				Msg("quota exceeded")

			if reqID != "" {
				w.Header().Set("X-Request-ID", reqID)
			}
			status := perr.HTTPStatusCode(perr.ErrorCodeTooManyRequests)
			body := quotaWire{
				StatusCode: status,
				Status:     stdhttp.StatusText(status),
				Error:      "rate limit exceeded",
				RequestID:  reqID,
			}
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(status)
			_ = stdjson.NewEncoder(w).Encode(body)
		})
	}
}
