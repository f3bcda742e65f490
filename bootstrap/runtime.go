package bootstrap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/mpiabi/abi"
	"github.com/kbukum/mpiabi/config"
	"github.com/kbukum/mpiabi/dllpath"
	"github.com/kbukum/mpiabi/finder"
	"github.com/kbukum/mpiabi/locator"
	"github.com/kbukum/mpiabi/logger"
	"github.com/kbukum/mpiabi/observability"
	"github.com/kbukum/mpiabi/platform"
	"github.com/kbukum/mpiabi/probe"
	"github.com/kbukum/mpiabi/registry"
	"github.com/kbukum/mpiabi/resolver"
)

// Runtime holds the wired dispatch components for one process.
//
// Example:
//
//	cfg, _ := config.Load()
//	rt, err := bootstrap.New(cfg)
//	mod, err := rt.Import(ctx, "pkg.mpi", []string{"/usr/lib/pkg"})
type Runtime struct {
	Name     string
	Cfg      *config.Config
	Host     *platform.Host
	Logger   *logger.Logger
	Metrics  *observability.Metrics
	Locator  *locator.Locator
	Prober   *probe.Prober
	Resolver *resolver.Resolver
	Registry *registry.Registry
	Finder   *finder.Finder
	MetaPath *finder.MetaPath
	DLLPath  *dllpath.Installer

	mu      sync.Mutex
	dllDirs []string
	onStop  []Hook
}

// New validates cfg and wires the runtime: logging, locator, prober,
// resolver with the configured overrides, registry with the configured
// modules, Windows DLL directories, and finally the finder in the meta path.
// A nil cfg means all defaults.
func New(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	o := resolveOptions(opts)

	rt := &Runtime{
		Name: cfg.Name,
		Cfg:  cfg,
		Host: o.host,
	}
	if rt.Host == nil {
		rt.Host = platform.Current()
	}

	// Logger: use custom if provided, otherwise init from config.
	if o.logger != nil {
		logger.SetGlobalLogger(o.logger)
	} else {
		logger.Init(&cfg.Logging)
	}
	logger.RegisterDefaults()
	rt.Logger = logger.Get("bootstrap")

	rt.Metrics = o.metrics
	if rt.Metrics == nil {
		m, err := observability.NewMetrics(observability.Meter(cfg.Name))
		if err != nil {
			rt.Logger.Warn("metrics disabled", logger.ErrorFields("new_metrics", err))
		}
		rt.Metrics = m
	}

	opener := o.opener
	if opener == nil {
		opener = probe.SystemOpener()
	}
	mode, err := probe.ParseMode(cfg.MPI4Py.RTLD)
	if err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	rt.Locator = locator.New(rt.Host)
	rt.Prober = probe.New(rt.Host, opener, probe.WithMetrics(rt.Metrics))
	rt.Resolver = resolver.New(rt.Host, rt.Locator, rt.Prober, resolver.WithMetrics(rt.Metrics))
	if err := rt.applyOverrides(cfg.MPI4Py, mode); err != nil {
		return nil, err
	}

	rt.Registry = registry.New(rt.Host.GOOS, rt.Resolver)
	for _, m := range cfg.Modules {
		if err := rt.registerModule(m); err != nil {
			return nil, err
		}
	}

	var dllOpts []dllpath.Option
	if o.addDir != nil {
		dllOpts = append(dllOpts, dllpath.WithAddDirFunc(o.addDir))
	}
	rt.DLLPath = dllpath.New(rt.Host, rt.Locator, dllOpts...)
	dirs, err := rt.DLLPath.Install(context.Background())
	if err != nil {
		rt.Logger.Warn("cannot register MPI DLL directories", logger.ErrorFields("dllpath_install", err))
	}
	rt.dllDirs = dirs

	suffixes := cfg.ExtensionSuffixes
	if len(suffixes) == 0 {
		suffixes = finder.DefaultExtensionSuffixes(rt.Host.GOOS)
	}
	rt.MetaPath = o.metaPath
	if rt.MetaPath == nil {
		rt.MetaPath = finder.NewMetaPath(finder.NewPathFinder(rt.Host, suffixes, rt.searchPaths))
	}
	finderOpts := []finder.Option{
		finder.WithExtensionSuffixes(suffixes...),
		finder.WithDefaultPaths(rt.searchPaths),
		finder.WithMetrics(rt.Metrics),
	}
	if o.warn != nil {
		finderOpts = append(finderOpts, finder.WithWarnFunc(o.warn))
	}
	rt.Finder = finder.Install(rt.MetaPath, rt.Registry, rt.Host, finderOpts...)

	rt.Logger.Debug("runtime ready", logger.Fields(
		logger.FieldPlatform, rt.Host.GOOS,
		"modules", len(cfg.Modules),
		"dll_dirs", len(dirs),
	))
	return rt, nil
}

func (rt *Runtime) applyOverrides(c config.MPI4PyConfig, mode probe.Mode) error {
	if c.MPIABI != "" {
		if _, err := rt.Resolver.SetAbi(c.MPIABI); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
	}
	if len(c.LibMPI) > 0 {
		rt.Resolver.SetLibrary(c.LibMPI...)
	}
	if mode != 0 {
		rt.Resolver.SetMode(mode)
	}
	return nil
}

func (rt *Runtime) registerModule(m config.ModuleConfig) error {
	if len(m.Variants) > 0 {
		if err := rt.Registry.Register(m.Name, m.Variants...); err != nil {
			return fmt.Errorf("module %s: %w", m.Name, err)
		}
	}
	if m.Default != "" {
		if err := rt.Registry.RegisterDefault(m.Name, m.Default); err != nil {
			return fmt.Errorf("module %s: %w", m.Name, err)
		}
	}
	return nil
}

// searchPaths is the default module search path: the configured
// search_paths, else the working directory.
func (rt *Runtime) searchPaths() []string {
	if len(rt.Cfg.SearchPaths) > 0 {
		return rt.Cfg.SearchPaths
	}
	return []string{"."}
}

// Register declares ABI variants of module. See registry.Registry.Register.
func (rt *Runtime) Register(module string, specs ...string) error {
	return rt.Registry.Register(module, specs...)
}

// RegisterDefault declares the unsuffixed build of module.
func (rt *Runtime) RegisterDefault(module, spec string) error {
	return rt.Registry.RegisterDefault(module, spec)
}

// Resolve returns the active ABI, probing on first use.
func (rt *Runtime) Resolve(ctx context.Context) (abi.ID, error) {
	return rt.Resolver.Resolve(ctx)
}

// Import finds fullname through the meta path and opens it with the
// prober's open flags.
func (rt *Runtime) Import(ctx context.Context, fullname string, paths []string) (*finder.Module, error) {
	start := time.Now()
	mod, err := rt.MetaPath.Load(ctx, fullname, paths, rt.Prober.Opener(), rt.Prober.Mode())
	if err != nil {
		rt.Logger.WithContext(ctx).Debug("import failed", logger.Fields(
			logger.FieldModule, fullname,
			logger.FieldError, err.Error(),
		))
		return nil, err
	}
	rt.Logger.WithContext(ctx).Debug("imported",
		logger.DurationFields("import", time.Since(start)),
		logger.Fields(logger.FieldModule, fullname, logger.FieldPath, mod.Spec.Origin))
	return mod, nil
}

// DLLDirectories returns the directories registered with the Windows loader.
func (rt *Runtime) DLLDirectories() []string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append([]string(nil), rt.dllDirs...)
}

// Shutdown runs the OnStop hooks.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	rt.mu.Lock()
	hooks := append([]Hook(nil), rt.onStop...)
	rt.mu.Unlock()
	return runHooks(ctx, hooks)
}
