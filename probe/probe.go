package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/mpiabi/abi"
	"github.com/kbukum/mpiabi/errors"
	"github.com/kbukum/mpiabi/locator"
	"github.com/kbukum/mpiabi/logger"
	"github.com/kbukum/mpiabi/observability"
	"github.com/kbukum/mpiabi/platform"
)

// Result describes the identified library.
type Result struct {
	ID      abi.ID
	Path    string
	Rule    string
	Library Library `json:"-" yaml:"-"`

	// AbiMajor and AbiMinor are set when the library exports
	// MPI_Abi_get_version.
	AbiMajor int
	AbiMinor int

	// Libfabric is the path of a preloaded libfabric, if any.
	Libfabric string

	// Rejected lists the candidates tried before the accepted one.
	Rejected []errors.ProbeFailure
}

// Prober identifies MPI libraries.
type Prober struct {
	host    *platform.Host
	opener  Opener
	rules   []Rule
	mode    Mode
	log     *logger.Logger
	metrics *observability.Metrics
}

// Option configures a Prober.
type Option func(*Prober)

// WithRules replaces the identification chain.
func WithRules(rules ...Rule) Option {
	return func(p *Prober) { p.rules = rules }
}

// WithMode sets the open flags. Zero keeps the platform default.
func WithMode(m Mode) Option {
	return func(p *Prober) {
		if m != 0 {
			p.mode = m
		}
	}
}

// WithMetrics records probe attempts.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Prober) { p.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Prober) { p.log = l }
}

// New creates a Prober.
func New(host *platform.Host, opener Opener, opts ...Option) *Prober {
	p := &Prober{
		host:   host,
		opener: opener,
		rules:  DefaultRules(host.GOOS),
		mode:   DefaultMode(host.GOOS),
		log:    logger.Get("prober"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Mode returns the open flags used for candidates.
func (p *Prober) Mode() Mode { return p.mode }

// SetMode changes the open flags. Zero restores the platform default. The
// caller serializes SetMode with Probe.
func (p *Prober) SetMode(m Mode) {
	if m == 0 {
		m = DefaultMode(p.host.GOOS)
	}
	p.mode = m
}

// Opener returns the library opener.
func (p *Prober) Opener() Opener { return p.opener }

// Probe tries candidates in order and identifies the first verified MPI
// library. When none verifies, the error lists every candidate with the
// reason it was rejected.
func (p *Prober) Probe(ctx context.Context, candidates []locator.Candidate) (*Result, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanProbe)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrCandidates, len(candidates))

	log := p.log.WithContext(ctx)
	start := time.Now()
	var failures []errors.ProbeFailure

	for _, c := range candidates {
		path := c.Path()
		lib, err := p.open(ctx, path)
		p.metrics.RecordProbeAttempt(ctx, err == nil)
		if err != nil {
			reason := loaderReason(err)
			log.Debug("candidate rejected", logger.Fields(logger.FieldPath, path, logger.FieldError, reason))
			failures = append(failures, errors.ProbeFailure{Path: path, Reason: reason})
			continue
		}

		id, rule, ok := Evaluate(p.rules, lib)
		if !ok {
			_ = lib.Close()
			log.Debug("candidate unclassified", logger.Fields(logger.FieldPath, path))
			failures = append(failures, errors.ProbeFailure{Path: path, Reason: "no identification rule matched"})
			continue
		}

		res := &Result{ID: id, Path: path, Rule: rule, Library: lib, Rejected: failures}
		if lib.HasSymbol(SymAbiGetVersion) {
			if major, minor, err := lib.CallVersion(SymAbiGetVersion); err == nil {
				res.AbiMajor, res.AbiMinor = major, minor
			}
		}
		if abi.IsPOSIX(p.host.GOOS) && !c.Bare() && lib.HasSymbol(SymIntelImageStatus) {
			res.Libfabric = p.preloadLibfabric(ctx, path)
		}

		observability.SetSpanAttribute(ctx, observability.AttrAbi, id.String())
		observability.SetSpanAttribute(ctx, observability.AttrLibraryPath, path)
		observability.SetSpanAttribute(ctx, observability.AttrRule, rule)
		log.Debug("library identified", logger.Fields(
			logger.FieldAbi, id.String(),
			logger.FieldPath, path,
			logger.FieldRule, rule,
			logger.FieldDuration, time.Since(start).Milliseconds(),
		))
		return res, nil
	}

	err := errors.ProbeExhausted(failures)
	observability.SetSpanError(ctx, err)
	return nil, err
}

// open loads path and verifies it is an MPI library.
func (p *Prober) open(ctx context.Context, path string) (Library, error) {
	var lib Library
	var err error
	if co, ok := p.opener.(ContextOpener); ok {
		lib, err = co.OpenContext(ctx, path, p.mode)
	} else {
		lib, err = p.opener.Open(path, p.mode)
	}
	if err != nil {
		return nil, err
	}
	if !lib.HasSymbol(SymGetVersion) {
		_ = lib.Close()
		return nil, errors.LibraryLoad(path, fmt.Errorf("undefined symbol: %s", SymGetVersion))
	}
	return lib, nil
}

// loaderReason extracts the native loader message from err.
func loaderReason(err error) string {
	if appErr, ok := errors.AsAppError(err); ok && appErr.Cause != nil {
		return appErr.Cause.Error()
	}
	return err.Error()
}
