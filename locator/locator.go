// Package locator builds the ordered list of places where the native MPI
// runtime library may live. It never fails: an empty result simply makes the
// prober report that nothing could be loaded.
package locator

import (
	"strings"

	"github.com/kbukum/mpiabi/abi"
	"github.com/kbukum/mpiabi/logger"
	"github.com/kbukum/mpiabi/platform"
)

// Environment variables consulted during discovery.
const (
	EnvVirtualEnv      = "VIRTUAL_ENV"
	EnvCondaPrefix     = "CONDA_PREFIX"
	EnvUserBase        = "PYTHONUSERBASE"
	EnvNoUserSite      = "PYTHONNOUSERSITE"
	EnvIntelRoot       = "I_MPI_ROOT"
	EnvIntelKind       = "I_MPI_LIBRARY_KIND"
	EnvMSMPIBin        = "MSMPI_BIN"
	EnvMSMPIRoot       = "MSMPI_ROOT"
	DefaultLibraryKind = "release"
)

var darwinLibDirs = []string{"/usr/local/lib", "/opt/homebrew/lib", "/opt/local/lib"}

// Candidate is one library to try: a directory and a filename. An empty Dir
// leaves the search to the dynamic linker.
type Candidate struct {
	Dir  string
	Name string
	File string
}

// Path returns the string handed to the loader.
func (c Candidate) Path() string {
	if c.File != "" {
		return c.File
	}
	return c.Name
}

// Bare reports whether the candidate relies on the linker search path.
func (c Candidate) Bare() bool { return c.Dir == "" && c.File == c.Name }

// Locator computes candidate directories and filenames for a host.
type Locator struct {
	host *platform.Host
	log  *logger.Logger
}

// New creates a Locator for host.
func New(host *platform.Host) *Locator {
	return &Locator{host: host, log: logger.Get("locator")}
}

// Directories returns candidate directories in priority order. Explicit
// entries, each possibly a PATH-style list, replace discovery entirely.
func (l *Locator) Directories(explicit ...string) []string {
	var s orderedSet
	if len(explicit) > 0 {
		for _, e := range explicit {
			for _, p := range l.host.SplitList(e) {
				s.add(p)
			}
		}
		return s.items
	}

	h := l.host
	base := h.BasePrefix()
	if prefix := l.envPrefix(); prefix != "" && prefix != base {
		s.add(h.LibDir(prefix))
	}
	if userBase, ok := l.userBase(); ok {
		s.add(h.LibDir(userBase))
	}
	if base != "" && h.FS.IsDir(base) {
		s.add(h.LibDir(base))
	}
	s.add("")
	if h.IsWindows() {
		for _, d := range l.InstallDirs() {
			s.add(d.Dir)
		}
	}
	if h.GOOS == "darwin" {
		for _, d := range darwinLibDirs {
			s.add(d)
		}
	}
	return s.items
}

// Filenames returns library filenames to try. Without an override the bare
// POSIX name comes first, followed by one versioned name per probed family.
func (l *Locator) Filenames(override abi.ID) []string {
	goos := l.host.GOOS
	if override != abi.None {
		if name, ok := abi.Filename(goos, override); ok {
			return []string{name}
		}
		return nil
	}
	var s orderedSet
	if bare := abi.BareFilename(goos); bare != "" {
		s.add(bare)
	}
	for _, id := range abi.Probed(goos) {
		if name, ok := abi.Filename(goos, id); ok {
			s.add(name)
		}
	}
	return s.items
}

// Candidates returns the directory by filename product in priority order.
// An explicit entry that is an existing file, or whose base name looks like
// a library filename, is tried verbatim; any other entry is a directory.
func (l *Locator) Candidates(explicit []string, override abi.ID) []Candidate {
	names := l.Filenames(override)
	var out []Candidate
	for _, dir := range l.Directories(explicit...) {
		if len(explicit) > 0 && l.isLibraryFile(dir) {
			c := Candidate{Name: l.host.Base(dir), File: dir}
			if l.host.HasDir(dir) {
				c.Dir = l.host.Dir(dir)
			}
			out = append(out, c)
			continue
		}
		for _, name := range names {
			c := Candidate{Dir: dir, Name: name, File: name}
			if dir != "" {
				c.File = l.host.Join(dir, name)
			}
			out = append(out, c)
		}
	}
	l.log.Debug("candidates computed", logger.Fields(logger.FieldCandidates, len(out), "explicit", len(explicit) > 0))
	return out
}

func (l *Locator) isLibraryFile(p string) bool {
	h := l.host
	if h.FS.IsDir(p) {
		return false
	}
	return h.FS.IsFile(p) || LooksLikeLibrary(h.GOOS, h.Base(p))
}

// LooksLikeLibrary reports whether name is a shared-library filename on
// goos: lib*.so[.N...] on POSIX, lib*[.N].dylib on macOS, *.dll on Windows.
func LooksLikeLibrary(goos, name string) bool {
	if !abi.IsPOSIX(goos) {
		return strings.HasSuffix(strings.ToLower(name), ".dll")
	}
	if !strings.HasPrefix(name, "lib") {
		return false
	}
	if goos == "darwin" && strings.HasSuffix(name, ".dylib") {
		return true
	}
	return strings.HasSuffix(name, ".so") || strings.Contains(name, ".so.")
}

func (l *Locator) envPrefix() string {
	if v := l.host.Getenv(EnvVirtualEnv); v != "" {
		return v
	}
	return l.host.Getenv(EnvCondaPrefix)
}

func (l *Locator) userBase() (string, bool) {
	h := l.host
	if _, disabled := h.LookupEnv(EnvNoUserSite); disabled {
		return "", false
	}
	if v := h.Getenv(EnvUserBase); v != "" {
		return h.ExpandHome(v), true
	}
	if h.IsWindows() {
		if appdata := h.Getenv("APPDATA"); appdata != "" {
			return h.Join(appdata, "Python"), true
		}
		return "", false
	}
	home, err := h.HomeDir()
	if err != nil || home == "" {
		return "", false
	}
	return h.Join(home, ".local"), true
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func (s *orderedSet) add(v string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}
