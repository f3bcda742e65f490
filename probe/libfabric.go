package probe

import (
	"context"
	"strings"

	"github.com/kbukum/mpiabi/logger"
)

// Environment variables that control the libfabric preload.
const (
	EnvFabrics         = "I_MPI_FABRICS"
	EnvOFIInternal     = "I_MPI_OFI_LIBRARY_INTERNAL"
	EnvFIProviderPath  = "FI_PROVIDER_PATH"
	libfabricSoname    = "libfabric.so.1"
	libfabricOpenFlags = Lazy | Global
)

// preloadLibfabric loads the libfabric shipped next to an Intel MPI library
// at mpiPath so its providers are found when the OFI transport starts. It
// returns the preloaded path, or "" when nothing was loaded.
func (p *Prober) preloadLibfabric(ctx context.Context, mpiPath string) string {
	h := p.host
	log := p.log.WithContext(ctx)

	if strings.EqualFold(h.Getenv(EnvFabrics), "shm") {
		return ""
	}
	if v, ok := h.LookupEnv(EnvOFIInternal); ok && isFalsy(v) {
		return ""
	}

	root := installRoot(h.Dir, h.Base, mpiPath)
	for _, dir := range []string{
		h.Join(root, "opt", "mpi", "libfabric", "lib"),
		h.Join(root, "opt", "mpi", "libfabric", "bin"),
		h.Join(root, "libfabric"),
		h.Join(root, "lib", "libfabric"),
		h.Join(root, "lib"),
	} {
		path := h.Join(dir, libfabricSoname)
		if !h.FS.IsFile(path) {
			continue
		}
		if _, set := h.LookupEnv(EnvFIProviderPath); !set {
			for _, prov := range []string{h.Join(dir, "prov"), h.Join(dir, "libfabric")} {
				if h.FS.IsDir(prov) {
					if err := h.Setenv(EnvFIProviderPath, prov); err != nil {
						log.Warn("cannot set provider path", logger.ErrorFields("setenv", err))
					}
					break
				}
			}
		}
		if _, err := p.opener.Open(path, libfabricOpenFlags); err != nil {
			log.Debug("libfabric preload failed", logger.Fields(logger.FieldPath, path, logger.FieldError, err.Error()))
			return ""
		}
		log.Debug("libfabric preloaded", logger.Fields(logger.FieldPath, path))
		return path
	}
	return ""
}

// installRoot returns the parent of the nearest "lib" directory above
// path, or the grandparent directory of path when there is none.
func installRoot(dir, base func(string) string, path string) string {
	d := dir(path)
	for cur := d; ; {
		if base(cur) == "lib" {
			return dir(cur)
		}
		parent := dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	return dir(d)
}

func isFalsy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "n", "no", "off", "false", "disable":
		return true
	}
	return false
}
