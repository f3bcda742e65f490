//go:build (linux || darwin || freebsd) && cgo

package probe

/*
#cgo linux LDFLAGS: -ldl
#include <stdlib.h>
#include <string.h>
#include <dlfcn.h>

static void *mpiabi_dlopen(const char *path, int flags, char **err) {
	void *h = dlopen(path, flags);
	if (h == NULL) {
		const char *e = dlerror();
		*err = e ? strdup(e) : NULL;
	}
	return h;
}

static void *mpiabi_dlsym(void *h, const char *name) {
	dlerror();
	return dlsym(h, name);
}

static int mpiabi_call_version(void *fn, int *major, int *minor) {
	return ((int (*)(int *, int *))fn)(major, minor);
}
*/
import "C"

import (
	stderrors "errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/kbukum/mpiabi/errors"
)

// SystemOpener returns the dlopen-based opener.
func SystemOpener() Opener {
	return OpenerFunc(dlOpen)
}

func dlFlags(m Mode) C.int {
	var flags C.int
	if m&Now != 0 {
		flags |= C.RTLD_NOW
	} else {
		flags |= C.RTLD_LAZY
	}
	if m&Global != 0 {
		flags |= C.RTLD_GLOBAL
	} else {
		flags |= C.RTLD_LOCAL
	}
	return flags
}

func dlOpen(path string, mode Mode) (Library, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	var cerr *C.char
	handle := C.mpiabi_dlopen(cpath, dlFlags(mode), &cerr)
	if handle == nil {
		msg := "unknown dlopen error"
		if cerr != nil {
			msg = C.GoString(cerr)
			C.free(unsafe.Pointer(cerr))
		}
		return nil, errors.LibraryLoad(path, stderrors.New(msg))
	}
	return &dlLibrary{path: path, handle: handle}, nil
}

type dlLibrary struct {
	mu     sync.Mutex
	path   string
	handle unsafe.Pointer
}

func (l *dlLibrary) Path() string { return l.path }

func (l *dlLibrary) sym(name string) unsafe.Pointer {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle == nil {
		return nil
	}
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return C.mpiabi_dlsym(l.handle, cname)
}

func (l *dlLibrary) HasSymbol(name string) bool {
	return l.sym(name) != nil
}

func (l *dlLibrary) CallVersion(name string) (int, int, error) {
	fn := l.sym(name)
	if fn == nil {
		return 0, 0, fmt.Errorf("%s: undefined symbol: %s", l.path, name)
	}
	var major, minor C.int
	if rc := C.mpiabi_call_version(fn, &major, &minor); rc != 0 {
		return 0, 0, fmt.Errorf("%s returned %d", name, int(rc))
	}
	return int(major), int(minor), nil
}

func (l *dlLibrary) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle == nil {
		return nil
	}
	rc := C.dlclose(l.handle)
	l.handle = nil
	if rc != 0 {
		return fmt.Errorf("dlclose %s: %s", l.path, C.GoString(C.dlerror()))
	}
	return nil
}
