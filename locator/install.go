package locator

import "github.com/kbukum/mpiabi/abi"

// InstallDir is a vendor install directory derived from environment
// variables, together with the DLL that marks it as usable.
type InstallDir struct {
	Dir    string
	Vendor abi.ID
	DLL    string
}

// InstallDirs returns the Intel MPI and MS-MPI directories named by the
// environment, Intel MPI first. Existence is not checked.
func (l *Locator) InstallDirs() []InstallDir {
	h := l.host
	var out []InstallDir
	if root := h.Getenv(EnvIntelRoot); root != "" {
		kind := h.Getenv(EnvIntelKind)
		if kind == "" {
			kind = DefaultLibraryKind
		}
		for _, d := range []string{
			h.Join(root, "bin", "mpi", kind),
			h.Join(root, "bin", kind),
			h.Join(root, "bin"),
		} {
			out = append(out, InstallDir{Dir: d, Vendor: abi.IMPI, DLL: "impi.dll"})
		}
	}
	bin := h.Getenv(EnvMSMPIBin)
	if bin == "" {
		if root := h.Getenv(EnvMSMPIRoot); root != "" {
			bin = h.Join(root, "bin")
		}
	}
	if bin != "" {
		out = append(out, InstallDir{Dir: bin, Vendor: abi.MSMPI, DLL: "msmpi.dll"})
	}
	return out
}
