package abi

import "strconv"

type libname struct {
	posix   string
	version int
	windows string
}

var libraries = map[ID]libname{
	MPICH:   {posix: "libmpi", version: 12, windows: "impi"},
	IMPI:    {posix: "libmpi", version: 12, windows: "impi"},
	OpenMPI: {posix: "libmpi", version: 40},
	MSMPI:   {windows: "msmpi"},
	MPIABI:  {posix: "libmpi_abi", version: 0, windows: "mpi_abi"},
}

// Version returns the fixed POSIX shared-library ABI version of id.
func (id ID) Version() (int, bool) {
	l, ok := libraries[id]
	if !ok || l.posix == "" {
		return 0, false
	}
	return l.version, true
}

// LibraryBase returns the native library base name of id on goos.
func (id ID) LibraryBase(goos string) (string, bool) {
	l, ok := libraries[id]
	if !ok {
		return "", false
	}
	if IsPOSIX(goos) {
		return l.posix, l.posix != ""
	}
	return l.windows, l.windows != ""
}

// Filename returns the versioned native library filename of id on goos,
// e.g. libmpi.so.40, libmpi.40.dylib or msmpi.dll.
func Filename(goos string, id ID) (string, bool) {
	base, ok := id.LibraryBase(goos)
	if !ok {
		return "", false
	}
	switch {
	case !IsPOSIX(goos):
		return base + ".dll", true
	case goos == "darwin":
		return base + "." + strconv.Itoa(libraries[id].version) + ".dylib", true
	default:
		return base + ".so." + strconv.Itoa(libraries[id].version), true
	}
}

// BareFilename returns the unversioned MPI library name on POSIX hosts and
// the empty string on Windows, where no such name exists.
func BareFilename(goos string) string {
	switch {
	case !IsPOSIX(goos):
		return ""
	case goos == "darwin":
		return "libmpi.dylib"
	default:
		return "libmpi.so"
	}
}

// Probed returns the IDs whose libraries are searched for by default, in
// priority order.
func Probed(goos string) []ID {
	if IsPOSIX(goos) {
		return []ID{MPICH, OpenMPI, MPIABI}
	}
	return []ID{IMPI, MSMPI, MPIABI}
}
