package finder

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/kbukum/mpiabi/platform"
	"github.com/kbukum/mpiabi/registry"
)

// PathFinder is the ordinary loader: it finds "<short><suffix>" in the
// search paths without any ABI rewriting. Modules owned by the registry it
// defers to are always declined, so their unsuffixed default file is only
// ever reached through the ABI Finder.
type PathFinder struct {
	host     *platform.Host
	suffixes []string
	paths    func() []string
	owner    atomic.Pointer[registry.Registry]
}

// NewPathFinder creates a PathFinder with the platform extension suffixes.
func NewPathFinder(host *platform.Host, suffixes []string, defaultPaths func() []string) *PathFinder {
	if len(suffixes) == 0 {
		suffixes = DefaultExtensionSuffixes(host.GOOS)
	}
	if defaultPaths == nil {
		defaultPaths = func() []string { return nil }
	}
	return &PathFinder{host: host, suffixes: suffixes, paths: defaultPaths}
}

// DeferTo makes p decline every module registered in reg.
func (p *PathFinder) DeferTo(reg *registry.Registry) {
	p.owner.Store(reg)
}

// FindSpec returns the first existing unsuffixed module file.
func (p *PathFinder) FindSpec(_ context.Context, fullname string, searchPaths []string) (*Spec, error) {
	if reg := p.owner.Load(); reg != nil && reg.Registered(fullname) {
		return nil, nil
	}
	if len(searchPaths) == 0 {
		searchPaths = p.paths()
	}
	short := fullname[strings.LastIndex(fullname, ".")+1:]
	for _, dir := range searchPaths {
		if dir == "" {
			continue
		}
		for _, ext := range p.suffixes {
			origin := p.host.Join(dir, short+ext)
			if p.host.FS.IsFile(origin) {
				return &Spec{Name: fullname, Origin: origin}, nil
			}
		}
	}
	return nil, nil
}
