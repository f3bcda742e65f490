package finder

import (
	"context"
	"sync"

	"github.com/kbukum/mpiabi/errors"
	"github.com/kbukum/mpiabi/platform"
	"github.com/kbukum/mpiabi/probe"
	"github.com/kbukum/mpiabi/registry"
)

// MetaFinder is one entry of a MetaPath chain.
type MetaFinder interface {
	FindSpec(ctx context.Context, fullname string, searchPaths []string) (*Spec, error)
}

// MetaPath is an ordered chain of finders; the first spec returned wins.
type MetaPath struct {
	mu      sync.Mutex
	finders []MetaFinder
}

// NewMetaPath creates a chain from finders.
func NewMetaPath(finders ...MetaFinder) *MetaPath {
	return &MetaPath{finders: finders}
}

// Append adds f to the end of the chain. A PathFinder appended after
// Install defers to the installed registry.
func (m *MetaPath) Append(f MetaFinder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pf, ok := f.(*PathFinder); ok {
		if installed := m.finderLocked(); installed != nil {
			pf.DeferTo(installed.registry)
		}
	}
	m.finders = append(m.finders, f)
}

// Finders returns a copy of the chain.
func (m *MetaPath) Finders() []MetaFinder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MetaFinder(nil), m.finders...)
}

// Find asks each finder in turn. When all decline it returns a
// MODULE_NOT_FOUND error.
func (m *MetaPath) Find(ctx context.Context, fullname string, searchPaths []string) (*Spec, error) {
	for _, f := range m.Finders() {
		spec, err := f.FindSpec(ctx, fullname, searchPaths)
		if err != nil {
			return nil, err
		}
		if spec != nil {
			return spec, nil
		}
	}
	return nil, errors.ModuleNotFound(fullname)
}

// Module is a loaded extension.
type Module struct {
	Spec    *Spec
	Library probe.Library
}

// Load finds fullname and opens its file with opener.
func (m *MetaPath) Load(ctx context.Context, fullname string, searchPaths []string, opener probe.Opener, mode probe.Mode) (*Module, error) {
	spec, err := m.Find(ctx, fullname, searchPaths)
	if err != nil {
		return nil, err
	}
	lib, err := opener.Open(spec.Origin, mode)
	if err != nil {
		return nil, err
	}
	return &Module{Spec: spec, Library: lib}, nil
}

// Install appends a Finder for reg to meta unless one is already present,
// in which case the existing Finder is returned and opts are ignored.
// PathFinders in the chain defer to the installed Finder's registry.
func Install(meta *MetaPath, reg *registry.Registry, host *platform.Host, opts ...Option) *Finder {
	meta.mu.Lock()
	defer meta.mu.Unlock()
	installed := meta.finderLocked()
	if installed == nil {
		installed = New(reg, host, opts...)
		meta.finders = append(meta.finders, installed)
	}
	for _, f := range meta.finders {
		if pf, ok := f.(*PathFinder); ok {
			pf.DeferTo(installed.registry)
		}
	}
	return installed
}

func (m *MetaPath) finderLocked() *Finder {
	for _, f := range m.finders {
		if existing, ok := f.(*Finder); ok {
			return existing
		}
	}
	return nil
}
