// Package config loads mpiabi configuration with Viper.
//
// Values come from, lowest precedence first: an mpiabi.yml file (searched in
// ./, ./config and ~/.config/mpiabi), a .env.mpiabi or .env file, the
// environment, and command line flags. MPI4PY_MPIABI, MPI4PY_LIBMPI and
// MPI4PY_RTLD land in the mpi4py section; other settings use the MPIABI_
// prefix with underscore-separated paths (e.g. MPIABI_LOGGING_LEVEL).
//
// # Usage
//
//	cfg, err := config.Load(config.WithFlags(fs, flagKeys))
package config
