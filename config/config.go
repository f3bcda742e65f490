package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kbukum/mpiabi/logger"
	"github.com/kbukum/mpiabi/validation"
)

// DefaultName is the service name used for file lookup and log tagging.
const DefaultName = "mpiabi"

// Config is the complete runtime configuration.
//
// Example mpiabi.yml:
//
//	mpi4py:
//	  mpiabi: openmpi
//	  libmpi: [/opt/openmpi/lib/libmpi.so.40]
//	  rtld: lazy|global
//	modules:
//	  - name: pkg.mpi
//	    variants: [mpich, openmpi]
//	    default: mpich
type Config struct {
	Name              string              `yaml:"name" mapstructure:"name"`
	MPI4Py            MPI4PyConfig        `yaml:"mpi4py" mapstructure:"mpi4py"`
	Modules           []ModuleConfig      `yaml:"modules" mapstructure:"modules" validate:"dive"`
	SearchPaths       []string            `yaml:"search_paths" mapstructure:"search_paths"`
	ExtensionSuffixes []string            `yaml:"extension_suffixes" mapstructure:"extension_suffixes"`
	Logging           logger.Config       `yaml:"logging" mapstructure:"logging"`
	Observability     ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

// MPI4PyConfig holds the user overrides. The keys mirror the MPI4PY_MPIABI,
// MPI4PY_LIBMPI and MPI4PY_RTLD environment variables.
type MPI4PyConfig struct {
	// MPIABI forces the ABI and skips probing.
	MPIABI string `yaml:"mpiabi" mapstructure:"mpiabi" validate:"omitempty,abiid"`
	// LibMPI lists library names or paths tried before the platform defaults.
	LibMPI []string `yaml:"libmpi" mapstructure:"libmpi"`
	// RTLD sets the dynamic-open flags, e.g. "now|global".
	RTLD string `yaml:"rtld" mapstructure:"rtld" validate:"omitempty,rtldmode"`
}

// ModuleConfig registers an ABI-dispatched extension module.
type ModuleConfig struct {
	Name     string   `yaml:"name" mapstructure:"name" validate:"required"`
	Variants []string `yaml:"variants" mapstructure:"variants" validate:"dive,abilist"`
	Default  string   `yaml:"default" mapstructure:"default" validate:"omitempty,abiid"`
}

// ObservabilityConfig enables OTLP export of spans and counters. An empty
// Endpoint leaves the global no-op providers in place.
type ObservabilityConfig struct {
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"min=0,max=1"`
}

// ApplyDefaults fills unset fields and normalizes list values.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Observability.Endpoint != "" && c.Observability.SampleRate == 0 {
		c.Observability.SampleRate = 1.0
	}
	c.MPI4Py.LibMPI = splitPathList(c.MPI4Py.LibMPI)
	c.SearchPaths = splitPathList(c.SearchPaths)
	c.Logging.ApplyDefaults()
}

// Validate checks the configuration before any library is probed.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}

	names := make([]string, len(c.Modules))
	for i, m := range c.Modules {
		names[i] = m.Name
	}
	v := validation.New().Unique("modules", names)
	for i, m := range c.Modules {
		v.Custom(len(m.Variants) > 0 || m.Default != "",
			fmt.Sprintf("modules[%d]", i), "needs variants or a default")
	}
	if err := v.Validate(); err != nil {
		return err
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}

// splitPathList expands entries holding an OS path list, so that
// MPI4PY_LIBMPI="a:b" yields two entries.
func splitPathList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, p := range filepath.SplitList(item) {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
