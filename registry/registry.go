// Package registry records which precompiled ABI variants each extension
// module ships. Entries only grow; nothing is ever removed.
package registry

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/kbukum/mpiabi/abi"
	"github.com/kbukum/mpiabi/errors"
	"github.com/kbukum/mpiabi/logger"
)

// Source supplies the active ABI.
type Source interface {
	Resolve(ctx context.Context) (abi.ID, error)
}

// Status classifies a module against the active ABI.
type Status int

const (
	// NotRegistered modules are left to the ordinary loader.
	NotRegistered Status = iota
	// Supported modules have a variant for the active ABI.
	Supported
	// Unsupported modules are registered but lack a matching variant.
	Unsupported
)

func (s Status) String() string {
	switch s {
	case Supported:
		return "supported"
	case Unsupported:
		return "unsupported"
	default:
		return "not-registered"
	}
}

// Match is the outcome of a lookup.
type Match struct {
	Status Status
	Abi    abi.ID
	// Suffix is "" for the unsuffixed default variant and ".<abi>" otherwise.
	Suffix string
}

type entry struct {
	variants map[abi.ID]struct{}
	def      abi.ID
}

// Registry maps dotted module names to their ABI variants.
type Registry struct {
	mu      sync.RWMutex
	goos    string
	source  Source
	modules map[string]*entry
	log     *logger.Logger
}

// New creates an empty Registry whose lookups consult source.
func New(goos string, source Source) *Registry {
	return &Registry{
		goos:    goos,
		source:  source,
		modules: make(map[string]*entry),
		log:     logger.Get("registry"),
	}
}

// Register adds variants for module. Each spec may list several ABIs
// separated by commas or spaces. Registering an existing variant is a no-op.
func (r *Registry) Register(module string, specs ...string) error {
	ids, err := r.parse(module, specs)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entryLocked(module)
	for _, id := range ids {
		e.variants[id] = struct{}{}
	}
	r.log.Debug("variants registered", logger.Fields(logger.FieldModule, module, "variants", len(e.variants)))
	return nil
}

// RegisterDefault registers spec for module and marks it as the variant
// shipped without an ABI tag in its filename.
func (r *Registry) RegisterDefault(module, spec string) error {
	ids, err := r.parse(module, []string{spec})
	if err != nil {
		return err
	}
	if len(ids) != 1 {
		return errors.InvalidInput("default", "exactly one default ABI is required for "+module)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entryLocked(module)
	e.variants[ids[0]] = struct{}{}
	e.def = ids[0]
	return nil
}

func (r *Registry) parse(module string, specs []string) ([]abi.ID, error) {
	if strings.TrimSpace(module) == "" {
		return nil, errors.InvalidInput("module", "module name is empty")
	}
	var ids []abi.ID
	for _, s := range specs {
		parsed, err := abi.Parse(r.goos, s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, parsed...)
	}
	return ids, nil
}

func (r *Registry) entryLocked(module string) *entry {
	e, ok := r.modules[module]
	if !ok {
		e = &entry{variants: make(map[abi.ID]struct{})}
		r.modules[module] = e
	}
	return e
}

// Registered reports whether module has been registered.
func (r *Registry) Registered(module string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.modules[module]
	return ok
}

// Lookup classifies module against the active ABI. Unregistered modules
// never trigger resolution. Resolution errors are returned unchanged.
func (r *Registry) Lookup(ctx context.Context, module string) (Match, error) {
	r.mu.RLock()
	_, ok := r.modules[module]
	r.mu.RUnlock()
	if !ok {
		return Match{Status: NotRegistered}, nil
	}

	id, err := r.source.Resolve(ctx)
	if err != nil {
		return Match{Status: NotRegistered}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	e := r.modules[module]
	if _, has := e.variants[id]; !has {
		return Match{Status: Unsupported, Abi: id}, nil
	}
	if id == e.def {
		return Match{Status: Supported, Abi: id}, nil
	}
	return Match{Status: Supported, Abi: id, Suffix: id.Suffix()}, nil
}

// SuffixFor returns the filename tag for module and whether module has a
// variant for the active ABI.
func (r *Registry) SuffixFor(ctx context.Context, module string) (string, bool, error) {
	m, err := r.Lookup(ctx, module)
	if err != nil {
		return "", false, err
	}
	return m.Suffix, m.Status == Supported, nil
}

// Variants returns the registered ABIs for module, sorted.
func (r *Registry) Variants(module string) []abi.ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.modules[module]
	if !ok {
		return nil
	}
	out := make([]abi.ID, 0, len(e.variants))
	for id := range e.variants {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Default returns the unsuffixed ABI of module, if any.
func (r *Registry) Default(module string) (abi.ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.modules[module]
	if !ok || e.def == abi.None {
		return abi.None, false
	}
	return e.def, true
}

// Modules returns all registered module names, sorted.
func (r *Registry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.modules))
	for m := range r.modules {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
