//go:build windows

package probe

import (
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/kbukum/mpiabi/errors"
)

// SystemOpener returns the LoadLibraryEx-based opener.
func SystemOpener() Opener {
	return OpenerFunc(winOpen)
}

func winOpen(path string, _ Mode) (Library, error) {
	var flags uintptr = windows.LOAD_LIBRARY_SEARCH_DEFAULT_DIRS
	if containsSeparator(path) {
		flags |= windows.LOAD_LIBRARY_SEARCH_DLL_LOAD_DIR
	}
	handle, err := windows.LoadLibraryEx(path, 0, flags)
	if err != nil {
		return nil, errors.LibraryLoad(path, err)
	}
	return &winLibrary{path: path, handle: handle}, nil
}

func containsSeparator(p string) bool {
	for i := 0; i < len(p); i++ {
		if p[i] == '\\' || p[i] == '/' {
			return true
		}
	}
	return false
}

type winLibrary struct {
	mu     sync.Mutex
	path   string
	handle windows.Handle
}

func (l *winLibrary) Path() string { return l.path }

func (l *winLibrary) proc(name string) (uintptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle == 0 {
		return 0, fmt.Errorf("%s: library closed", l.path)
	}
	return windows.GetProcAddress(l.handle, name)
}

func (l *winLibrary) HasSymbol(name string) bool {
	_, err := l.proc(name)
	return err == nil
}

func (l *winLibrary) CallVersion(name string) (int, int, error) {
	fn, err := l.proc(name)
	if err != nil {
		return 0, 0, err
	}
	var major, minor int32
	rc, _, _ := syscall.SyscallN(fn, uintptr(unsafe.Pointer(&major)), uintptr(unsafe.Pointer(&minor)))
	if int32(rc) != 0 {
		return 0, 0, fmt.Errorf("%s returned %d", name, int32(rc))
	}
	return int(major), int(minor), nil
}

func (l *winLibrary) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle == 0 {
		return nil
	}
	err := windows.FreeLibrary(l.handle)
	l.handle = 0
	return err
}
