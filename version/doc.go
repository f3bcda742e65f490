// Package version reports the build of the mpiabi tool.
//
// Version, GitCommit and BuildTime are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/mpiabi/version.Version=1.0.0"
//
// Unset values fall back to the VCS stamp in the binary's build info.
package version
