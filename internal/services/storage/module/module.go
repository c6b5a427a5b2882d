// Package module wires the storage service into the modkit registry
package module

import (
	"context"

	"ossmk/internal/modkit"
	phttp "ossmk/internal/platform/net/http"
	"ossmk/internal/services/storage/domain"
	"ossmk/internal/services/storage/service"
)

// Ports exposed by the storage module
type Ports struct {
	// Open dials a backend for the given DSN
	Open func(ctx context.Context, dsn string) (domain.Backend, error)
}

// Module implements the storage service module
type Module struct {
	deps  modkit.Deps
	built modkit.Built
	ports Ports
}

// New constructs the storage module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	ports := Ports{Open: service.Open}
	built := modkit.Build(append([]modkit.Option{
		modkit.WithName("storage"),
		modkit.WithPorts[any](ports),
	}, opts...)...)
	return &Module{deps: deps, built: built, ports: ports}
}

// MountRoutes implements module.Module; storage has no HTTP surface
func (m *Module) MountRoutes(phttp.Router) {}

// Ports returns the module's ports struct
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return m.built.Name }
