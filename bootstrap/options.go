package bootstrap

import (
	"github.com/kbukum/mpiabi/dllpath"
	"github.com/kbukum/mpiabi/finder"
	"github.com/kbukum/mpiabi/logger"
	"github.com/kbukum/mpiabi/observability"
	"github.com/kbukum/mpiabi/platform"
	"github.com/kbukum/mpiabi/probe"
)

// Option configures the Runtime during creation.
type Option func(*runtimeOptions)

// runtimeOptions collects all option values before applying to Runtime.
type runtimeOptions struct {
	host     *platform.Host
	opener   probe.Opener
	logger   *logger.Logger
	metaPath *finder.MetaPath
	warn     finder.WarnFunc
	metrics  *observability.Metrics
	addDir   dllpath.AddDirFunc
}

// resolveOptions applies all options and returns the collected values.
func resolveOptions(opts []Option) *runtimeOptions {
	o := &runtimeOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithHost replaces the current process environment, filesystem and
// platform. Tests use it with platformtest fakes.
func WithHost(h *platform.Host) Option {
	return func(o *runtimeOptions) {
		o.host = h
	}
}

// WithOpener replaces the system dynamic loader.
func WithOpener(op probe.Opener) Option {
	return func(o *runtimeOptions) {
		o.opener = op
	}
}

// WithLogger sets a custom logger for the runtime.
// If not set, the logger is initialized from the config's Logging field.
func WithLogger(l *logger.Logger) Option {
	return func(o *runtimeOptions) {
		o.logger = l
	}
}

// WithMetaPath installs the finder into an existing chain instead of a new
// one holding only the plain path finder.
func WithMetaPath(m *finder.MetaPath) Option {
	return func(o *runtimeOptions) {
		o.metaPath = m
	}
}

// WithWarnFunc receives dispatch warnings instead of the logger.
func WithWarnFunc(fn finder.WarnFunc) Option {
	return func(o *runtimeOptions) {
		o.warn = fn
	}
}

// WithMetrics records probe, resolve and find counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *runtimeOptions) {
		o.metrics = m
	}
}

// WithAddDirFunc replaces the Windows DLL directory registration.
func WithAddDirFunc(fn dllpath.AddDirFunc) Option {
	return func(o *runtimeOptions) {
		o.addDir = fn
	}
}
