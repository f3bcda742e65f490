package bootstrap

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/kbukum/mpiabi/abi"
	"github.com/kbukum/mpiabi/observability"
	"github.com/kbukum/mpiabi/registry"
	"github.com/kbukum/mpiabi/resolver"
	"github.com/kbukum/mpiabi/version"
)

// ModuleReport describes how one module name dispatches.
type ModuleReport struct {
	Name     string   `json:"name" yaml:"name"`
	Status   string   `json:"status" yaml:"status"`
	Abi      string   `json:"abi,omitempty" yaml:"abi,omitempty"`
	Suffix   string   `json:"suffix,omitempty" yaml:"suffix,omitempty"`
	Variants []string `json:"variants,omitempty" yaml:"variants,omitempty"`
	Default  string   `json:"default,omitempty" yaml:"default,omitempty"`
	Origin   string   `json:"origin,omitempty" yaml:"origin,omitempty"`
	Error    string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report is a diagnostic snapshot of the runtime.
type Report struct {
	Name           string                      `json:"name" yaml:"name"`
	Version        string                      `json:"version" yaml:"version"`
	Platform       string                      `json:"platform" yaml:"platform"`
	Mode           string                      `json:"rtld" yaml:"rtld"`
	Resolution     *resolver.Resolution        `json:"resolution,omitempty" yaml:"resolution,omitempty"`
	Error          string                      `json:"error,omitempty" yaml:"error,omitempty"`
	Directories    []string                    `json:"directories" yaml:"directories"`
	Filenames      []string                    `json:"filenames" yaml:"filenames"`
	DLLDirectories []string                    `json:"dll_directories,omitempty" yaml:"dll_directories,omitempty"`
	Modules        []ModuleReport              `json:"modules,omitempty" yaml:"modules,omitempty"`
	Health         observability.ServiceHealth `json:"health" yaml:"health"`
}

// Report resolves the ABI and describes the library search and, for every
// registered module plus those named in modules, what an import would pick
// from paths. Resolution failures are recorded, not returned.
func (rt *Runtime) Report(ctx context.Context, paths []string, modules ...string) *Report {
	r := &Report{
		Name:           rt.Name,
		Version:        version.GetShortVersion(),
		Platform:       rt.Host.GOOS,
		Mode:           rt.Prober.Mode().String(),
		Directories:    rt.Locator.Directories(rt.Cfg.MPI4Py.LibMPI...),
		Filenames:      rt.Locator.Filenames(abi.None),
		DLLDirectories: rt.DLLDirectories(),
	}

	if _, err := rt.Resolver.Resolve(ctx); err != nil {
		r.Error = err.Error()
	} else if res, ok := rt.Resolver.Resolution(); ok {
		r.Resolution = &res
	}

	names := rt.Registry.Modules()
	for _, m := range modules {
		if !slices.Contains(names, m) {
			names = append(names, m)
		}
	}
	for _, name := range names {
		r.Modules = append(r.Modules, rt.moduleReport(ctx, name, paths))
	}

	r.Health = *observability.NewServiceHealth(rt.Name, r.Version)
	r.Health.AddComponent(rt.Resolver.CheckHealth(ctx))
	r.Health.AddComponent(observability.Health{
		Name:    "registry",
		Status:  observability.HealthStatusUp,
		Details: map[string]string{"modules": fmt.Sprint(len(rt.Registry.Modules()))},
	})
	return r
}

func (rt *Runtime) moduleReport(ctx context.Context, name string, paths []string) ModuleReport {
	mr := ModuleReport{Name: name, Status: registry.NotRegistered.String()}
	if rt.Registry.Registered(name) {
		for _, id := range rt.Registry.Variants(name) {
			mr.Variants = append(mr.Variants, id.String())
		}
		if id, ok := rt.Registry.Default(name); ok {
			mr.Default = id.String()
		}
		m, err := rt.Registry.Lookup(ctx, name)
		if err != nil {
			mr.Error = err.Error()
			return mr
		}
		mr.Status = m.Status.String()
		mr.Abi = m.Abi.String()
		mr.Suffix = m.Suffix
	}

	spec, err := rt.MetaPath.Find(ctx, name, paths)
	if err != nil {
		mr.Error = err.Error()
		return mr
	}
	mr.Origin = spec.Origin
	return mr
}

// WriteText renders the report as an indented tree.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s (%s, rtld=%s)\n\n", r.Name, r.Version, r.Platform, r.Mode)

	if r.Resolution != nil {
		fmt.Fprintf(&b, "MPI ABI: %s (%s)\n", r.Resolution.ID, r.Resolution.Source)
		if r.Resolution.Path != "" {
			fmt.Fprintf(&b, "   ├── library: %s\n", r.Resolution.Path)
		}
		if r.Resolution.Rule != "" {
			fmt.Fprintf(&b, "   ├── rule: %s\n", r.Resolution.Rule)
		}
		if r.Resolution.Libfabric != "" {
			fmt.Fprintf(&b, "   ├── libfabric: %s\n", r.Resolution.Libfabric)
		}
		fmt.Fprintf(&b, "   └── resolution: %s\n", r.Resolution.ResolutionID)
	} else {
		fmt.Fprintf(&b, "MPI ABI: unresolved\n")
		for _, line := range strings.Split(r.Error, "\n") {
			fmt.Fprintf(&b, "   %s\n", line)
		}
	}

	writeList(&b, "Directories", r.Directories)
	writeList(&b, "Filenames", r.Filenames)
	writeList(&b, "DLL directories", r.DLLDirectories)

	if len(r.Modules) > 0 {
		fmt.Fprintf(&b, "\nModules\n")
		for i, m := range r.Modules {
			prefix := treePrefix(i, len(r.Modules))
			target := m.Origin
			if target == "" {
				target = m.Error
			}
			fmt.Fprintf(&b, "   %s %s [%s", prefix, m.Name, m.Status)
			if len(m.Variants) > 0 {
				fmt.Fprintf(&b, ": %s", strings.Join(m.Variants, ","))
			}
			if m.Default != "" {
				fmt.Fprintf(&b, " default=%s", m.Default)
			}
			fmt.Fprintf(&b, "] → %s\n", target)
		}
	}

	if len(r.Health.Components) > 0 {
		fmt.Fprintf(&b, "\nHealth: %s\n", r.Health.Status)
		for i, h := range r.Health.Components {
			msg := ""
			if h.Message != "" {
				msg = fmt.Sprintf(" (%s)", firstLine(h.Message))
			}
			fmt.Fprintf(&b, "   %s %s %s: %s%s\n", treePrefix(i, len(r.Health.Components)), healthStatusIcon(h.Status), h.Name, h.Status, msg)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s (%d)\n", title, len(items))
	for i, item := range items {
		fmt.Fprintf(b, "   %s %s\n", treePrefix(i, len(items)), item)
	}
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func healthStatusIcon(status observability.HealthStatus) string {
	switch status {
	case observability.HealthStatusUp:
		return "✅"
	case observability.HealthStatusDegraded:
		return "⚠️"
	case observability.HealthStatusDown:
		return "❌"
	default:
		return "❓"
	}
}
