// Package http provides http transport for analyze
package http

import (
	stdhttp "net/http"

	"ossmk/internal/modkit/httpkit"
	perr "ossmk/internal/platform/errors"
	"ossmk/internal/services/analyze/domain"
)

// Register mounts analyze endpoints on the given router
func Register(r httpkit.Router, port domain.AnalyzerPort) {
	h := &handlers{port: port}
	httpkit.PostJSON[domain.Request](r, "/analyze", h.analyze)
}

type handlers struct{ port domain.AnalyzerPort }

func (h *handlers) analyze(r *stdhttp.Request, in domain.Request) (any, error) {
	if in.User == "" {
		return nil, perr.InvalidArgf("user is required")
	}
	return h.port.Analyze(r.Context(), in)
}
