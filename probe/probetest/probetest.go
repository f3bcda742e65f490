// Package probetest provides scriptable libraries and openers for tests.
package probetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/mpiabi/probe"
)

// Library is a fake opened library.
type Library struct {
	mu       sync.Mutex
	path     string
	symbols  map[string]bool
	versions map[string][2]int
	closed   bool
}

// NewLibrary creates a library exporting symbols.
func NewLibrary(symbols ...string) *Library {
	l := &Library{symbols: map[string]bool{}, versions: map[string][2]int{}}
	for _, s := range symbols {
		l.symbols[s] = true
	}
	return l
}

// MPICH returns a library that looks like an MPICH build.
func MPICH() *Library { return NewLibrary(probe.SymGetVersion) }

// OpenMPI returns a library that looks like an Open MPI build.
func OpenMPI() *Library { return NewLibrary(probe.SymGetVersion, probe.SymOpenMPI) }

// IntelMPI returns a library that looks like an Intel MPI build.
func IntelMPI() *Library {
	return NewLibrary(probe.SymGetVersion, probe.SymIntelImageStatus)
}

// MSMPI returns a library that looks like MS-MPI.
func MSMPI() *Library { return NewLibrary(probe.SymGetVersion, probe.SymMSMPI) }

// ABI returns a library implementing the vendor-neutral ABI major.minor.
func ABI(major, minor int) *Library {
	return NewLibrary(probe.SymGetVersion).WithVersion(probe.SymAbiGetVersion, major, minor)
}

// WithVersion exports name as a version function returning major, minor.
func (l *Library) WithVersion(name string, major, minor int) *Library {
	l.symbols[name] = true
	l.versions[name] = [2]int{major, minor}
	return l
}

func (l *Library) Path() string { return l.path }

func (l *Library) HasSymbol(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.closed && l.symbols[name]
}

func (l *Library) CallVersion(name string) (int, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.versions[name]
	if !ok {
		return 0, 0, fmt.Errorf("%s: undefined symbol: %s", l.path, name)
	}
	return v[0], v[1], nil
}

func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Closed reports whether Close was called.
func (l *Library) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Open records one Open call.
type Open struct {
	Path string
	Mode probe.Mode
}

// Opener serves fake libraries by path. Unknown paths fail the way dlopen
// reports a missing file.
type Opener struct {
	mu    sync.Mutex
	libs  map[string]*Library
	errs  map[string]error
	calls []Open

	// OnOpen runs before each context-aware open; a non-nil error fails it.
	OnOpen func(ctx context.Context, path string) error
}

// NewOpener creates an empty opener.
func NewOpener() *Opener {
	return &Opener{libs: map[string]*Library{}, errs: map[string]error{}}
}

// Add serves lib at path.
func (o *Opener) Add(path string, lib *Library) *Opener {
	o.mu.Lock()
	defer o.mu.Unlock()
	lib.path = path
	o.libs[path] = lib
	return o
}

// Fail makes opening path return err.
func (o *Opener) Fail(path string, err error) *Opener {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs[path] = err
	return o
}

// OpenContext runs OnOpen and then opens path.
func (o *Opener) OpenContext(ctx context.Context, path string, mode probe.Mode) (probe.Library, error) {
	if o.OnOpen != nil {
		if err := o.OnOpen(ctx, path); err != nil {
			return nil, err
		}
	}
	return o.Open(path, mode)
}

func (o *Opener) Open(path string, mode probe.Mode) (probe.Library, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, Open{Path: path, Mode: mode})
	if err, ok := o.errs[path]; ok {
		return nil, err
	}
	lib, ok := o.libs[path]
	if !ok {
		return nil, fmt.Errorf("%s: cannot open shared object file: No such file or directory", path)
	}
	lib.mu.Lock()
	lib.closed = false
	lib.mu.Unlock()
	return lib, nil
}

// Calls returns every Open call so far.
func (o *Opener) Calls() []Open {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Open(nil), o.calls...)
}

// Paths returns the opened paths in order.
func (o *Opener) Paths() []string {
	var out []string
	for _, c := range o.Calls() {
		out = append(out, c.Path)
	}
	return out
}
