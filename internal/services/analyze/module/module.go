// Package module wires the analyze service into the API using modkit
package module

import (
	"net/http"

	modkit "ossmk/internal/modkit"
	"ossmk/internal/modkit/httpkit"
	analyzehttp "ossmk/internal/services/analyze/http"
	"ossmk/internal/services/analyze/domain"
	svc "ossmk/internal/services/analyze/service"
)

// Ports exposed by the analyze module
type Ports struct {
	Analyzer domain.AnalyzerPort
}

// Module implements the analyze module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     Ports
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)
}

// New constructs the analyze module around an assembled service
func New(deps modkit.Deps, analyzer *svc.Service, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("analyze"),
		modkit.WithPrefix("/v1"),
	}, opts...)...)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		ports:     Ports{Analyzer: analyzer},
		subrouter: b.Subrouter,
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		analyzehttp.Register(r, m.ports.Analyzer)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(sr httpkit.Router) {
		for _, mw := range m.mws {
			sr.Use(mw)
		}
		m.register(m.subrouter(sr))
	})
}

// Ports returns the module's ports struct
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return m.name }
