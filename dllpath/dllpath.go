// Package dllpath makes MPI's own DLLs resolvable on Windows before any
// extension module is loaded. It adds the Intel MPI and MS-MPI binary
// directories named by the environment to the loader search path and to
// PATH. On other platforms installation is a no-op: their extension modules
// locate libmpi through the dynamic linker and RPATH.
package dllpath

import (
	"context"
	"strings"
	"sync"

	"github.com/kbukum/mpiabi/abi"
	"github.com/kbukum/mpiabi/locator"
	"github.com/kbukum/mpiabi/logger"
	"github.com/kbukum/mpiabi/observability"
	"github.com/kbukum/mpiabi/platform"
)

// AddDirFunc registers a directory with the OS loader search path.
type AddDirFunc func(dir string) error

// Installer adds MPI DLL directories to the search path once per directory.
type Installer struct {
	host    *platform.Host
	locator *locator.Locator
	addDir  AddDirFunc
	log     *logger.Logger

	mu    sync.Mutex
	added map[string]string
	order []string
}

// Option configures an Installer.
type Option func(*Installer)

// WithAddDirFunc replaces the OS directory registration call.
func WithAddDirFunc(fn AddDirFunc) Option {
	return func(i *Installer) { i.addDir = fn }
}

// New creates an Installer.
func New(host *platform.Host, loc *locator.Locator, opts ...Option) *Installer {
	i := &Installer{
		host:    host,
		locator: loc,
		addDir:  addDllDirectory,
		log:     logger.Get("dllpath"),
		added:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Discover returns the directories that hold a vendor DLL: the first Intel
// MPI directory containing impi.dll and the MS-MPI directory containing
// msmpi.dll.
func (i *Installer) Discover() []string {
	var out []string
	intelFound := false
	for _, d := range i.locator.InstallDirs() {
		if d.Vendor == abi.IMPI && intelFound {
			continue
		}
		if !i.host.FS.IsFile(i.host.Join(d.Dir, d.DLL)) {
			continue
		}
		if d.Vendor == abi.IMPI {
			intelFound = true
		}
		out = append(out, d.Dir)
	}
	return out
}

// Install registers every discovered directory not added before and
// prepends it to PATH. It returns the directories added by this call.
func (i *Installer) Install(ctx context.Context) ([]string, error) {
	if !i.host.IsWindows() {
		return nil, nil
	}
	ctx, span := observability.StartSpan(ctx, observability.SpanDLLPath)
	defer span.End()
	log := i.log.WithContext(ctx)

	i.mu.Lock()
	defer i.mu.Unlock()

	var added []string
	for _, dir := range i.Discover() {
		key := dir
		if real, err := i.host.FS.RealPath(dir); err == nil {
			key = real
		}
		key = strings.ToLower(key)
		if _, done := i.added[key]; done {
			continue
		}
		if err := i.addDir(dir); err != nil {
			observability.SetSpanError(ctx, err)
			return added, err
		}
		path := dir
		if old := i.host.Getenv("PATH"); old != "" {
			path = dir + i.host.ListSeparator() + old
		}
		if err := i.host.Setenv("PATH", path); err != nil {
			return added, err
		}
		i.added[key] = dir
		i.order = append(i.order, dir)
		added = append(added, dir)
		log.Debug("dll directory added", logger.Fields(logger.FieldPath, dir))
	}
	return added, nil
}

// Added returns every directory added so far, in order.
func (i *Installer) Added() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.order...)
}
