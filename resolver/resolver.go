// Package resolver decides, once per process, which MPI ABI is active.
//
// An explicit ABI override wins, then an explicit library override fed
// through the prober, then default probing over the locator's candidates.
// Overrides come from the setters, or from MPI4PY_MPIABI, MPI4PY_LIBMPI and
// MPI4PY_RTLD in the host environment when the setter was never called.
// The first successful answer is kept for the life of the Resolver; later
// override changes are ignored. Failures are not cached, so a broken
// environment is reported again on the next call.
package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/mpiabi/abi"
	"github.com/kbukum/mpiabi/errors"
	"github.com/kbukum/mpiabi/locator"
	"github.com/kbukum/mpiabi/logger"
	"github.com/kbukum/mpiabi/observability"
	"github.com/kbukum/mpiabi/platform"
	"github.com/kbukum/mpiabi/probe"
)

// Source names where a resolved ABI came from.
type Source string

const (
	SourceAbiOverride     Source = "abi-override"
	SourceLibraryOverride Source = "library-override"
	SourceProbe           Source = "probe"
)

// Resolution is a snapshot of a successful resolution.
type Resolution struct {
	ID           abi.ID `json:"abi" yaml:"abi"`
	Source       Source `json:"source" yaml:"source"`
	Path         string `json:"path,omitempty" yaml:"path,omitempty"`
	Rule         string `json:"rule,omitempty" yaml:"rule,omitempty"`
	Libfabric    string `json:"libfabric,omitempty" yaml:"libfabric,omitempty"`
	ResolutionID string `json:"resolution_id" yaml:"resolution_id"`
}

// Environment variables consulted at resolution time when the matching
// setter was never called.
const (
	EnvMPIABI = "MPI4PY_MPIABI"
	EnvLibMPI = "MPI4PY_LIBMPI"
	EnvRTLD   = "MPI4PY_RTLD"
)

type inProgressKey struct{}

// Resolver memoizes the active ABI.
type Resolver struct {
	mu sync.Mutex

	host    *platform.Host
	locator *locator.Locator
	prober  *probe.Prober
	log     *logger.Logger
	metrics *observability.Metrics

	abiOverride abi.ID
	abiSet      bool
	libOverride []string
	libSet      bool
	modeSet     bool

	inflight   chan struct{}
	resolved   bool
	resolution Resolution
	result     *probe.Result
	lastErr    error
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMetrics records resolutions.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// New creates a Resolver.
func New(host *platform.Host, loc *locator.Locator, prober *probe.Prober, opts ...Option) *Resolver {
	r := &Resolver{
		host:    host,
		locator: loc,
		prober:  prober,
		log:     logger.Get("resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetAbi sets the ABI override from a user spelling. It reports whether the
// override took effect; during and after resolution it is ignored. Unknown
// names fail. An empty spelling disables the override, including the one
// MPI4PY_MPIABI would supply.
func (r *Resolver) SetAbi(spec string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ignoredLocked("abi") {
		return false, nil
	}
	if spec == "" {
		r.abiOverride = abi.None
		r.abiSet = true
		return true, nil
	}
	id, err := abi.Canonicalize(r.host.GOOS, spec)
	if err != nil {
		return false, err
	}
	r.abiOverride = id
	r.abiSet = true
	return true, nil
}

// SetLibrary sets the library override. Each entry may be a directory, a
// library file or a PATH-style list of either.
func (r *Resolver) SetLibrary(paths ...string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ignoredLocked("libmpi") {
		return false
	}
	r.libOverride = append([]string(nil), paths...)
	r.libSet = true
	return true
}

// SetMode sets the dynamic-open flags used while probing.
func (r *Resolver) SetMode(m probe.Mode) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ignoredLocked("rtld") {
		return false
	}
	r.prober.SetMode(m)
	r.modeSet = true
	return true
}

func (r *Resolver) ignoredLocked(what string) bool {
	switch {
	case r.resolved:
		r.log.Debug("override ignored after resolution", logger.Fields("override", what, logger.FieldAbi, r.resolution.ID.String()))
		return true
	case r.inflight != nil:
		r.log.Debug("override ignored during resolution", logger.Fields("override", what))
		return true
	}
	return false
}

// libraryOverrideLocked returns the SetLibrary entries, else MPI4PY_LIBMPI.
func (r *Resolver) libraryOverrideLocked() []string {
	if r.libSet {
		return r.libOverride
	}
	if v := r.host.Getenv(EnvLibMPI); v != "" {
		return []string{v}
	}
	return nil
}

// envOverridesLocked folds MPI4PY_MPIABI and MPI4PY_RTLD into the state for
// the settings no setter has claimed.
func (r *Resolver) envOverridesLocked() (abi.ID, error) {
	id := r.abiOverride
	if !r.abiSet {
		if v := r.host.Getenv(EnvMPIABI); v != "" {
			parsed, err := abi.Canonicalize(r.host.GOOS, v)
			if err != nil {
				return abi.None, err
			}
			id = parsed
		}
	}
	if !r.modeSet {
		if v := r.host.Getenv(EnvRTLD); v != "" {
			m, err := probe.ParseMode(v)
			if err != nil {
				return abi.None, err
			}
			r.prober.SetMode(m)
		}
	}
	return id, nil
}

// Resolve returns the active ABI, computing it on first success. Calls that
// arrive while another resolution is running wait for it, or for ctx. A call
// made with a context derived from the running resolution fails with
// RESOLUTION_IN_PROGRESS; loader hooks must therefore receive the probing
// context through probe.ContextOpener and pass it on.
func (r *Resolver) Resolve(ctx context.Context) (abi.ID, error) {
	if owner, _ := ctx.Value(inProgressKey{}).(*Resolver); owner == r {
		return abi.None, errors.ResolutionInProgress()
	}

	r.mu.Lock()
	for r.inflight != nil && !r.resolved {
		done := r.inflight
		r.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return abi.None, ctx.Err()
		}
		r.mu.Lock()
	}
	if r.resolved {
		defer r.mu.Unlock()
		return r.resolution.ID, nil
	}
	done := make(chan struct{})
	r.inflight = done
	override, err := r.envOverridesLocked()
	explicit := r.libraryOverrideLocked()
	r.mu.Unlock()

	id := uuid.NewString()
	ctx = context.WithValue(ctx, inProgressKey{}, r)
	ctx = logger.ContextWithResolutionID(ctx, id)
	ctx, span := observability.StartSpan(ctx, observability.SpanResolve)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrResolutionID, id)

	start := time.Now()
	var res Resolution
	var result *probe.Result
	if err == nil {
		res, result, err = r.resolve(ctx, override, explicit)
	} else {
		res.Source = SourceAbiOverride
	}
	res.ResolutionID = id
	r.metrics.RecordResolve(ctx, string(res.Source), res.ID.String(), err, time.Since(start))
	observability.SetSpanAttribute(ctx, observability.AttrSource, string(res.Source))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inflight = nil
	close(done)

	log := r.log.WithContext(ctx)
	if err != nil {
		r.lastErr = err
		observability.SetSpanError(ctx, err)
		log.Debug("resolution failed", logger.Fields(logger.FieldSource, string(res.Source), logger.FieldError, err.Error()))
		return abi.None, err
	}

	r.resolved = true
	r.resolution = res
	r.result = result
	r.lastErr = nil
	observability.SetSpanAttribute(ctx, observability.AttrAbi, res.ID.String())
	log.Debug("abi resolved", logger.Fields(
		logger.FieldAbi, res.ID.String(),
		logger.FieldSource, string(res.Source),
		logger.FieldPath, res.Path,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return res.ID, nil
}

func (r *Resolver) resolve(ctx context.Context, override abi.ID, explicit []string) (Resolution, *probe.Result, error) {
	if override != abi.None {
		return Resolution{ID: override, Source: SourceAbiOverride}, nil, nil
	}

	source := SourceProbe
	if len(explicit) > 0 {
		source = SourceLibraryOverride
	}
	result, err := r.prober.Probe(ctx, r.locator.Candidates(explicit, abi.None))
	if err != nil {
		return Resolution{Source: source}, nil, err
	}
	return Resolution{
		ID:        result.ID,
		Source:    source,
		Path:      result.Path,
		Rule:      result.Rule,
		Libfabric: result.Libfabric,
	}, result, nil
}

// Resolved returns the cached ABI without triggering resolution.
func (r *Resolver) Resolved() (abi.ID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolution.ID, r.resolved
}

// Resolution returns the cached resolution details.
func (r *Resolver) Resolution() (Resolution, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolution, r.resolved
}

// Library returns the verified MPI library, or nil when resolution has not
// happened or was decided by an ABI override.
func (r *Resolver) Library() probe.Library {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.result == nil {
		return nil
	}
	return r.result.Library
}

// Candidates returns the library candidates the next probe would try.
func (r *Resolver) Candidates() []locator.Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locator.Candidates(r.libraryOverrideLocked(), abi.None)
}

// CheckHealth reports the resolver state.
func (r *Resolver) CheckHealth(_ context.Context) observability.Health {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := observability.Health{Name: "resolver"}
	switch {
	case r.resolved:
		h.Status = observability.HealthStatusUp
		h.Details = map[string]string{
			"abi":    r.resolution.ID.String(),
			"source": string(r.resolution.Source),
		}
		if r.resolution.Path != "" {
			h.Details["path"] = r.resolution.Path
		}
	case r.inflight != nil:
		h.Status = observability.HealthStatusDegraded
		h.Message = "resolving"
	case r.lastErr != nil:
		h.Status = observability.HealthStatusDown
		h.Message = r.lastErr.Error()
	default:
		h.Status = observability.HealthStatusDegraded
		h.Message = "not resolved"
	}
	return h
}
