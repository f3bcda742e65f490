// Command mpiabi reports which MPI ABI the current environment resolves to,
// which library provided it, and which variant of each module an import
// would load.
//
//	mpiabi --libmpi /opt/openmpi/lib --module pkg.mpi --path ./build
//	MPI4PY_MPIABI=mpich mpiabi --format json
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/kbukum/mpiabi/bootstrap"
	"github.com/kbukum/mpiabi/config"
	"github.com/kbukum/mpiabi/errors"
	"github.com/kbukum/mpiabi/observability"
	"github.com/kbukum/mpiabi/validation"
	"github.com/kbukum/mpiabi/version"
)

// Exit codes.
const (
	exitOK         = 0
	exitUnresolved = 1
	exitUsage      = 2
)

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"abi":           "mpi4py.mpiabi",
	"libmpi":        "mpi4py.libmpi",
	"rtld":          "mpi4py.rtld",
	"otlp-endpoint": "observability.endpoint",
	"otlp-insecure": "observability.insecure",
	"log-level":     "logging.level",
	"search-path":   "search_paths",
}

type options struct {
	configFile  string
	format      string
	modules     []string
	paths       []string
	showVersion bool
}

func newFlagSet(stderr io.Writer) (*pflag.FlagSet, *options) {
	o := &options{}
	fs := pflag.NewFlagSet("mpiabi", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&o.configFile, "config", "c", "", "configuration file (default: search ./mpiabi.yml, ./config/mpiabi.yml)")
	fs.StringVarP(&o.format, "format", "f", "text", "output format: text, json or yaml")
	fs.StringSliceVarP(&o.modules, "module", "m", nil, "module name to look up (repeatable)")
	fs.StringSliceVarP(&o.paths, "path", "p", nil, "module search directory for this lookup (repeatable)")
	fs.BoolVar(&o.showVersion, "version", false, "print the version and exit")

	fs.String("abi", "", "force the MPI ABI (mpich, openmpi, impi, msmpi, mpiabi)")
	fs.StringSlice("libmpi", nil, "MPI library file or directory to probe (repeatable)")
	fs.String("rtld", "", "dynamic-open flags, e.g. lazy|global")
	fs.StringSlice("search-path", nil, "default module search directory (repeatable)")
	fs.String("otlp-endpoint", "", "OTLP HTTP endpoint host:port for traces and metrics")
	fs.Bool("otlp-insecure", false, "use plain HTTP for the OTLP endpoint")
	fs.String("log-level", "", "log level: trace, debug, info, warn, error")
	return fs, o
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs, o := newFlagSet(stderr)
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return exitOK
		}
		return exitUsage
	}
	if o.showVersion {
		fmt.Fprintf(stdout, "mpiabi %s\n", version.Get())
		return exitOK
	}
	if err := o.validate(); err != nil {
		fmt.Fprintf(stderr, "mpiabi: %s\n", err.Message)
		return exitUsage
	}

	loadOpts := []config.LoaderOption{config.WithFlags(fs, flagKeys)}
	if o.configFile != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(o.configFile))
	}
	cfg, err := config.Load(loadOpts...)
	if err != nil {
		fmt.Fprintf(stderr, "mpiabi: %v\n", err)
		return exitUsage
	}

	var bootOpts []bootstrap.Option
	var stop []bootstrap.Hook
	if cfg.Observability.Endpoint != "" {
		metrics, hooks, err := initTelemetry(ctx, cfg)
		if err != nil {
			fmt.Fprintf(stderr, "mpiabi: %v\n", err)
			return exitUsage
		}
		bootOpts = append(bootOpts, bootstrap.WithMetrics(metrics))
		stop = hooks
	}

	rt, err := bootstrap.New(cfg, bootOpts...)
	if err != nil {
		fmt.Fprintf(stderr, "mpiabi: %v\n", err)
		return exitUsage
	}
	rt.OnStop(stop...)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.Shutdown(sctx); err != nil {
			fmt.Fprintf(stderr, "mpiabi: shutdown: %v\n", err)
		}
	}()

	report := rt.Report(ctx, o.paths, o.modules...)
	if err := writeReport(stdout, report, o.format); err != nil {
		fmt.Fprintf(stderr, "mpiabi: %v\n", err)
		return exitUsage
	}
	if report.Resolution == nil {
		return exitUnresolved
	}
	return exitOK
}

var formats = []string{"text", "json", "yaml"}

func (o *options) validate() *errors.AppError {
	v := validation.New().OneOf("format", o.format, formats)
	for i, m := range o.modules {
		v.Required(fmt.Sprintf("module[%d]", i), m)
	}
	return v.Validate()
}

func writeReport(w io.Writer, r *bootstrap.Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return r.WriteText(w)
	}
}

// initTelemetry installs OTLP trace and metric providers and returns the
// hooks that flush them.
func initTelemetry(ctx context.Context, cfg *config.Config) (*observability.Metrics, []bootstrap.Hook, error) {
	v := version.GetShortVersion()

	tc := observability.DefaultTracerConfig(cfg.Name)
	tc.ServiceVersion = v
	tc.Endpoint = cfg.Observability.Endpoint
	tc.Insecure = cfg.Observability.Insecure
	tc.SampleRate = cfg.Observability.SampleRate
	tp, err := observability.InitTracer(ctx, &tc)
	if err != nil {
		return nil, nil, err
	}

	mc := observability.DefaultMeterConfig(cfg.Name)
	mc.ServiceVersion = v
	mc.Endpoint = cfg.Observability.Endpoint
	mc.Insecure = cfg.Observability.Insecure
	mp, err := observability.InitMeter(ctx, &mc)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}

	metrics, err := observability.NewMetrics(mp.Meter(cfg.Name))
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}
	return metrics, []bootstrap.Hook{tp.Shutdown, mp.Shutdown}, nil
}
