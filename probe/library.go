package probe

import (
	"context"

	"github.com/kbukum/mpiabi/errors"
)

// Symbols inspected while identifying a library.
const (
	SymGetVersion       = "MPI_Get_version"
	SymAbiGetVersion    = "MPI_Abi_get_version"
	SymOpenMPI          = "ompi_mpi_comm_self"
	SymMSMPI            = "MSMPI_Get_version"
	SymIntelImageStatus = "I_MPI_Check_image_status"
)

// ErrDynamicLoadingUnavailable is returned by the system opener in builds
// without a dynamic loader binding.
var ErrDynamicLoadingUnavailable = errors.New(errors.ErrCodeLibraryLoad,
	"dynamic library loading is not available in this build")

// Library is an opened native library.
type Library interface {
	Path() string
	HasSymbol(name string) bool
	// CallVersion calls an exported int(int*, int*) function and returns
	// the two integers it writes.
	CallVersion(name string) (major, minor int, err error)
	Close() error
}

// Opener opens native libraries.
type Opener interface {
	Open(path string, mode Mode) (Library, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(path string, mode Mode) (Library, error)

// Open calls f.
func (f OpenerFunc) Open(path string, mode Mode) (Library, error) { return f(path, mode) }

// ContextOpener is implemented by openers that need the probing context,
// for example to run hooks that import other modules while a library loads.
type ContextOpener interface {
	OpenContext(ctx context.Context, path string, mode Mode) (Library, error)
}
