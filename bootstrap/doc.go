// Package bootstrap wires the dispatch components into a Runtime.
//
// New validates the configuration, initializes logging, builds the
// locator, prober and resolver (applying the mpi4py overrides), registers
// the configured modules, adds the Windows DLL directories and finally
// installs the ABI finder after the plain path finder in a MetaPath.
//
//	cfg, err := config.Load()
//	rt, err := bootstrap.New(cfg)
//	defer rt.Shutdown(ctx)
//	mod, err := rt.Import(ctx, "pkg.mpi", nil)
//
// Report produces the diagnostic snapshot printed by cmd/mpiabi.
package bootstrap
