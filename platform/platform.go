// Package platform abstracts the host facts the dispatch packages depend on:
// the operating system, process environment, filesystem and install prefixes.
// Production code uses Current; tests build a Host around the fakes in
// platformtest so that Windows and macOS behavior can be exercised anywhere.
package platform

import (
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// Env is read/write access to environment variables.
type Env interface {
	LookupEnv(key string) (string, bool)
	Setenv(key, value string) error
}

// FS is the filesystem surface used for candidate checks.
type FS interface {
	IsDir(name string) bool
	IsFile(name string) bool
	RealPath(name string) (string, error)
}

// Host bundles the platform capabilities.
type Host struct {
	GOOS string
	Env  Env
	FS   FS

	// Executable is the running program's path; its grandparent directory is
	// treated as the base install prefix.
	Executable string

	// Home overrides home directory lookup when non-empty.
	Home string
}

// Current returns a Host backed by the real process environment and filesystem.
func Current() *Host {
	exe, _ := os.Executable()
	return &Host{
		GOOS:       runtime.GOOS,
		Env:        OSEnv{},
		FS:         OSFS{},
		Executable: exe,
	}
}

// IsWindows reports whether the host uses Windows conventions.
func (h *Host) IsWindows() bool { return h.GOOS == "windows" }

// Getenv returns the value of key or "" when unset.
func (h *Host) Getenv(key string) string {
	v, _ := h.Env.LookupEnv(key)
	return v
}

// LookupEnv reports the value of key and whether it is set.
func (h *Host) LookupEnv(key string) (string, bool) {
	return h.Env.LookupEnv(key)
}

// Setenv sets key in the process environment.
func (h *Host) Setenv(key, value string) error {
	return h.Env.Setenv(key, value)
}

// HomeDir returns the user's home directory.
func (h *Host) HomeDir() (string, error) {
	if h.Home != "" {
		return h.Home, nil
	}
	return homedir.Dir()
}

// ExpandHome expands a leading "~" in p.
func (h *Host) ExpandHome(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	if h.Home != "" {
		return h.Home + p[1:]
	}
	expanded, err := homedir.Expand(p)
	if err != nil {
		return p
	}
	return expanded
}

// ListSeparator is the PATH-list separator for the host.
func (h *Host) ListSeparator() string {
	if h.IsWindows() {
		return ";"
	}
	return ":"
}

// SplitList splits a PATH-style list, dropping empty entries.
func (h *Host) SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, h.ListSeparator()) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Join joins path elements with the host separator.
func (h *Host) Join(elem ...string) string {
	if h.GOOS == runtime.GOOS {
		return filepath.Join(elem...)
	}
	if !h.IsWindows() {
		return path.Join(elem...)
	}
	parts := make([]string, len(elem))
	for i, e := range elem {
		parts[i] = strings.ReplaceAll(e, `\`, "/")
	}
	return strings.ReplaceAll(path.Join(parts...), "/", `\`)
}

// Dir returns all but the last element of p.
func (h *Host) Dir(p string) string {
	if h.GOOS == runtime.GOOS {
		return filepath.Dir(p)
	}
	if !h.IsWindows() {
		return path.Dir(p)
	}
	return strings.ReplaceAll(path.Dir(strings.ReplaceAll(p, `\`, "/")), "/", `\`)
}

// Base returns the last element of p.
func (h *Host) Base(p string) string {
	if h.GOOS == runtime.GOOS {
		return filepath.Base(p)
	}
	return path.Base(strings.ReplaceAll(p, `\`, "/"))
}

// HasDir reports whether p carries a directory component.
func (h *Host) HasDir(p string) bool {
	if strings.Contains(p, "/") {
		return true
	}
	return h.IsWindows() && strings.Contains(p, `\`)
}

// BasePrefix returns the install prefix of the running program: the parent
// of the directory holding the executable.
func (h *Host) BasePrefix() string {
	if h.Executable == "" {
		return ""
	}
	return h.Dir(h.Dir(h.Executable))
}

// LibDir returns the native library directory under an install prefix.
func (h *Host) LibDir(prefix string) string {
	if h.IsWindows() {
		return h.Join(prefix, "Library", "bin")
	}
	return h.Join(prefix, "lib")
}

// OSEnv is the real process environment.
type OSEnv struct{}

func (OSEnv) LookupEnv(key string) (string, bool) { return os.LookupEnv(key) }
func (OSEnv) Setenv(key, value string) error      { return os.Setenv(key, value) }

// OSFS is the real filesystem.
type OSFS struct{}

func (OSFS) IsDir(name string) bool {
	fi, err := os.Stat(name)
	return err == nil && fi.IsDir()
}

func (OSFS) IsFile(name string) bool {
	fi, err := os.Stat(name)
	return err == nil && fi.Mode().IsRegular()
}

func (OSFS) RealPath(name string) (string, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
