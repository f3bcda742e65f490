// Package probe opens candidate MPI runtime libraries and identifies the ABI
// family they implement.
//
// A candidate is accepted only if it exports MPI_Get_version. The first
// accepted library is classified by an ordered list of rules: a library that
// reports a vendor-neutral ABI version is mpiabi, otherwise vendor symbols
// decide between Open MPI and the MPICH family on POSIX, or MS-MPI and Intel
// MPI on Windows. Intel MPI libraries opened from an install tree also get
// their bundled libfabric preloaded.
//
// The accepted library is never closed.
package probe
