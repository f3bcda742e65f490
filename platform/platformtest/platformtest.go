// Package platformtest provides in-memory fakes for platform.Host.
package platformtest

import (
	"os"
	"strings"
	"sync"

	"github.com/kbukum/mpiabi/platform"
)

// Env is a map-backed environment.
type Env struct {
	mu   sync.Mutex
	vars map[string]string
}

// NewEnv creates an environment from key/value pairs.
func NewEnv(kv map[string]string) *Env {
	e := &Env{vars: map[string]string{}}
	for k, v := range kv {
		e.vars[k] = v
	}
	return e
}

func (e *Env) LookupEnv(key string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.vars[key]
	return v, ok
}

func (e *Env) Setenv(key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars[key] = value
	return nil
}

// FS is an in-memory filesystem holding directories, files and symlinks.
type FS struct {
	Dirs  map[string]bool
	Files map[string]bool
	Links map[string]string
}

// NewFS creates an empty filesystem.
func NewFS() *FS {
	return &FS{Dirs: map[string]bool{}, Files: map[string]bool{}, Links: map[string]string{}}
}

// AddDir records a directory.
func (f *FS) AddDir(paths ...string) *FS {
	for _, p := range paths {
		f.Dirs[p] = true
	}
	return f
}

// AddFile records a regular file and its parent directory.
func (f *FS) AddFile(paths ...string) *FS {
	for _, p := range paths {
		f.Files[p] = true
		if i := strings.LastIndexAny(p, `/\`); i > 0 {
			f.Dirs[p[:i]] = true
		}
	}
	return f
}

// AddLink makes from resolve to to.
func (f *FS) AddLink(from, to string) *FS {
	f.Links[from] = to
	return f
}

func (f *FS) resolve(name string) string {
	if to, ok := f.Links[name]; ok {
		return to
	}
	return name
}

func (f *FS) IsDir(name string) bool  { return f.Dirs[f.resolve(name)] }
func (f *FS) IsFile(name string) bool { return f.Files[f.resolve(name)] }

func (f *FS) RealPath(name string) (string, error) {
	r := f.resolve(name)
	if !f.Dirs[r] && !f.Files[r] {
		return "", os.ErrNotExist
	}
	return r, nil
}

// Host builds a platform.Host for goos around the given fakes. Home is set
// so user-base discovery never consults the real account.
func Host(goos string, env map[string]string, fs *FS) *platform.Host {
	if fs == nil {
		fs = NewFS()
	}
	return &platform.Host{
		GOOS: goos,
		Env:  NewEnv(env),
		FS:   fs,
		Home: "/home/tester",
	}
}
