// Package errors provides the coded error type shared by the ABI resolution
// and dispatch packages.
//
// Every failure mode of the subsystem is a deterministic property of the
// installed environment, so nothing here is retryable. Codes split into
// configuration errors (fail fast), probe exhaustion (aggregated report),
// dispatch mismatches (non-fatal) and filesystem absence (never an error).
package errors
