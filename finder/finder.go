// Package finder rewrites extension module filenames according to the
// active MPI ABI and loads the matching variant.
//
// A registered module "pkg.ext" with ABI variant X ships as
// "ext.X<suffix>" next to an optional unsuffixed default "ext<suffix>".
// Unregistered modules are declined untouched.
package finder

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/mpiabi/abi"
	"github.com/kbukum/mpiabi/logger"
	"github.com/kbukum/mpiabi/observability"
	"github.com/kbukum/mpiabi/platform"
	"github.com/kbukum/mpiabi/registry"
)

// Spec describes a module file that can be loaded.
type Spec struct {
	Name   string `json:"name" yaml:"name"`
	Origin string `json:"origin" yaml:"origin"`
	Abi    abi.ID `json:"abi,omitempty" yaml:"abi,omitempty"`
}

// Warning is emitted when a registered module has no usable variant.
type Warning struct {
	Module  string
	Abi     abi.ID
	Message string
}

// WarnFunc receives dispatch warnings.
type WarnFunc func(ctx context.Context, w Warning)

// LogWarn writes w through the finder logger.
func LogWarn(ctx context.Context, w Warning) {
	logger.Get("finder").WithContext(ctx).Warn(w.Message, logger.Fields(
		logger.FieldModule, w.Module,
		logger.FieldAbi, w.Abi.String(),
	))
}

// DefaultExtensionSuffixes returns native extension suffixes for goos.
func DefaultExtensionSuffixes(goos string) []string {
	switch goos {
	case "windows":
		return []string{".dll", ".pyd"}
	case "darwin":
		return []string{".so", ".dylib"}
	default:
		return []string{".so"}
	}
}

// Finder locates ABI-specific module variants.
type Finder struct {
	registry *registry.Registry
	host     *platform.Host
	suffixes []string
	paths    func() []string
	warn     WarnFunc
	metrics  *observability.Metrics
	log      *logger.Logger
}

// Option configures a Finder.
type Option func(*Finder)

// WithWarnFunc replaces the warning sink.
func WithWarnFunc(fn WarnFunc) Option {
	return func(f *Finder) {
		if fn != nil {
			f.warn = fn
		}
	}
}

// WithExtensionSuffixes replaces the platform extension suffixes.
func WithExtensionSuffixes(suffixes ...string) Option {
	return func(f *Finder) {
		if len(suffixes) > 0 {
			f.suffixes = suffixes
		}
	}
}

// WithDefaultPaths sets the directories searched when a lookup passes none.
func WithDefaultPaths(fn func() []string) Option {
	return func(f *Finder) { f.paths = fn }
}

// WithMetrics records lookup outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(f *Finder) { f.metrics = m }
}

// New creates a Finder over reg.
func New(reg *registry.Registry, host *platform.Host, opts ...Option) *Finder {
	f := &Finder{
		registry: reg,
		host:     host,
		suffixes: DefaultExtensionSuffixes(host.GOOS),
		paths:    func() []string { return nil },
		warn:     LogWarn,
		log:      logger.Get("finder"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Registry returns the registry consulted by the finder.
func (f *Finder) Registry() *registry.Registry { return f.registry }

// ExtensionSuffixes returns the suffixes tried for each directory.
func (f *Finder) ExtensionSuffixes() []string {
	return append([]string(nil), f.suffixes...)
}

// FindSpec returns the variant of fullname matching the active ABI. It
// returns nil without error when the module is not registered, and also,
// after a single warning, when no variant exists for the active ABI.
// Resolution failures are returned.
func (f *Finder) FindSpec(ctx context.Context, fullname string, searchPaths []string) (*Spec, error) {
	m, err := f.registry.Lookup(ctx, fullname)
	if err != nil {
		return nil, err
	}
	if m.Status == registry.NotRegistered {
		return nil, nil
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanFindSpec)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrModule, fullname)
	observability.SetSpanAttribute(ctx, observability.AttrAbi, m.Abi.String())

	if m.Status == registry.Unsupported {
		f.decline(ctx, fullname, m.Abi)
		return nil, nil
	}

	if len(searchPaths) == 0 {
		searchPaths = f.paths()
	}
	short := fullname[strings.LastIndex(fullname, ".")+1:]
	for _, dir := range searchPaths {
		if dir == "" {
			continue
		}
		for _, ext := range f.suffixes {
			origin := f.host.Join(dir, short+m.Suffix+ext)
			if !f.host.FS.IsFile(origin) {
				continue
			}
			observability.SetSpanAttribute(ctx, observability.AttrOrigin, origin)
			f.metrics.RecordFind(ctx, "found")
			f.log.WithContext(ctx).Debug("variant found", logger.Fields(logger.FieldModule, fullname, logger.FieldPath, origin))
			return &Spec{Name: fullname, Origin: origin, Abi: m.Abi}, nil
		}
	}

	f.decline(ctx, fullname, m.Abi)
	return nil, nil
}

func (f *Finder) decline(ctx context.Context, module string, id abi.ID) {
	observability.SetSpanAttribute(ctx, observability.AttrOutcome, "declined")
	f.metrics.RecordFind(ctx, "declined")
	f.metrics.RecordDispatchWarning(ctx, module, id.String())
	f.warn(ctx, Warning{
		Module:  module,
		Abi:     id,
		Message: fmt.Sprintf("unsupported MPI ABI %q for module %q", id, module),
	})
}
