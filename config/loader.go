package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Environment prefixes picked up by the loader. MPI4PY_ variables keep their
// prefix as the "mpi4py" section; MPIABI_ variables map onto top-level keys.
const (
	EnvPrefixMPI4Py = "MPI4PY_"
	EnvPrefixMPIABI = "MPIABI_"
)

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver handles finding and resolving config and env files.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns explicit paths if provided, otherwise searches for them.
func (cr *Resolver) ResolveFiles(name string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}

	if resolved.ConfigFile == "" {
		resolved.ConfigFile = cr.findConfigFile(name)
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = cr.findEnvFile(name)
	}

	return resolved
}

// findConfigFile searches the working directory, then the user config dir.
func (cr *Resolver) findConfigFile(name string) string {
	searchPaths := []string{
		fmt.Sprintf("./%s.yml", name),
		fmt.Sprintf("./%s.yaml", name),
		fmt.Sprintf("./config/%s.yml", name),
		fmt.Sprintf("./config/%s.yaml", name),
		fmt.Sprintf("./cmd/%s/config.yml", name),
	}
	if home, err := homedir.Dir(); err == nil {
		searchPaths = append(searchPaths, fmt.Sprintf("%s/.config/%s/config.yml", home, name))
	}

	for _, path := range searchPaths {
		if cr.FileSystem.Exists(path) {
			return path
		}
	}
	return ""
}

// findEnvFile searches for .env files in standard locations.
func (cr *Resolver) findEnvFile(name string) string {
	envFiles := []string{
		fmt.Sprintf(".env.%s", name),
		".env",
	}
	dirs := []string{".", "./config", fmt.Sprintf("./cmd/%s", name)}

	for _, envFile := range envFiles {
		for _, dir := range dirs {
			fullPath := fmt.Sprintf("%s/%s", dir, envFile)
			if cr.FileSystem.Exists(fullPath) {
				return fullPath
			}
		}
	}
	return ""
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // Direct config file path (optional)
	EnvFile    string // Direct env file path (optional)
	Environ    func() []string
	Flags      *pflag.FlagSet
	FlagKeys   map[string]string
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnviron replaces os.Environ as the source of environment variables.
func WithEnviron(environ func() []string) LoaderOption {
	return func(lc *LoaderConfig) { lc.Environ = environ }
}

// WithFlags applies command line flags on top of files and environment.
// keys maps flag names to configuration keys, e.g. "abi" -> "mpi4py.mpiabi".
// Only flags the user actually set are applied.
func WithFlags(fs *pflag.FlagSet, keys map[string]string) LoaderOption {
	return func(lc *LoaderConfig) {
		lc.Flags = fs
		lc.FlagKeys = keys
	}
}

// Load reads the mpiabi configuration, applies defaults and validates it.
func Load(opts ...LoaderOption) (*Config, error) {
	cfg := &Config{}
	if err := LoadConfig(DefaultName, cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig loads configuration into cfg. Precedence, lowest first: the
// YAML file, the .env file, the process environment, changed flags.
func LoadConfig(name string, cfg any, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}
	if lc.Environ == nil {
		lc.Environ = os.Environ
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(name, lc)

	return loadFromResolvedFiles(name, cfg, files, lc)
}

// loadFromResolvedFiles loads configuration from specific files.
func loadFromResolvedFiles(name string, cfg any, files ResolvedFiles, lc LoaderConfig) error {
	v := viper.New()

	// 1. YAML config is the base
	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", files.ConfigFile, err)
		}
	}

	// 2. .env only fills variables the process does not already define
	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			fmt.Fprintf(os.Stderr, "[config] warning: failed to load .env file %s: %v\n", files.EnvFile, err)
		}
	}

	// 3. Environment
	bindEnvVars(v, lc.Environ())

	// 4. Flags
	if lc.Flags != nil {
		applyFlags(v, lc.Flags, lc.FlagKeys)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for %s: %w", name, err)
	}

	return nil
}

// bindEnvVars sets every MPI4PY_ and MPIABI_ variable under each nested key
// variant it could stand for.
func bindEnvVars(v *viper.Viper, environ []string) {
	for _, env := range environ {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}

		var name string
		switch {
		case strings.HasPrefix(key, EnvPrefixMPI4Py):
			name = key
		case strings.HasPrefix(key, EnvPrefixMPIABI):
			name = strings.TrimPrefix(key, EnvPrefixMPIABI)
		default:
			continue
		}
		if name == "" {
			continue
		}

		for _, variant := range generateEnvKeyVariants(name) {
			v.Set(variant, value)
		}
	}
}

// applyFlags copies changed flags into v under their mapped keys.
func applyFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	fs.Visit(func(f *pflag.Flag) {
		key, ok := keys[f.Name]
		if !ok {
			return
		}
		switch f.Value.Type() {
		case "stringSlice":
			val, _ := fs.GetStringSlice(f.Name)
			v.Set(key, val)
		case "stringArray":
			val, _ := fs.GetStringArray(f.Name)
			v.Set(key, val)
		default:
			v.Set(key, f.Value.String())
		}
	})
}

// generateEnvKeyVariants creates all possible key variants for environment variable binding.
// Examples:
//
//	MPI4PY_LIBMPI -> [mpi4py_libmpi, mpi4py.libmpi]
//	LOGGING_NO_COLOR -> [logging_no_color, logging.no.color, logging.no_color, logging_no.color]
func generateEnvKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")

	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	variants := []string{
		lowerKey,
		strings.ReplaceAll(lowerKey, "_", "."),
	}

	// Generate progressive nesting patterns
	for i := 1; i < len(parts); i++ {
		prefix := strings.Join(parts[:i], ".")
		suffix := strings.Join(parts[i:], "_")
		variants = append(variants, prefix+"."+suffix)
	}

	for i := 1; i < len(parts); i++ {
		prefix := strings.Join(parts[:i], "_")
		suffix := strings.Join(parts[i:], ".")
		variants = append(variants, prefix+"."+suffix)
	}

	return removeDuplicates(variants)
}

// removeDuplicates removes duplicate strings from a slice.
func removeDuplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))

	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}

	return result
}
