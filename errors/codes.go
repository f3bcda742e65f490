package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Configuration errors (programmer or packaging mistakes, fail fast)
const (
	// ErrCodeInvalidAbi indicates an ABI identifier that is not a recognized name.
	ErrCodeInvalidAbi ErrorCode = "INVALID_ABI"
	// ErrCodeInvalidInput indicates a configuration value failed validation.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Probe errors
const (
	// ErrCodeProbeExhausted indicates no candidate library opened and verified.
	ErrCodeProbeExhausted ErrorCode = "PROBE_EXHAUSTED"
	// ErrCodeLibraryLoad indicates the platform loader rejected a library.
	ErrCodeLibraryLoad ErrorCode = "LIBRARY_LOAD_FAILED"
	// ErrCodeResolutionInProgress indicates a re-entrant ABI resolution.
	ErrCodeResolutionInProgress ErrorCode = "RESOLUTION_IN_PROGRESS"
)

// Dispatch errors
const (
	// ErrCodeAbiUnsupported indicates a registered module has no variant for the resolved ABI.
	ErrCodeAbiUnsupported ErrorCode = "ABI_UNSUPPORTED"
	// ErrCodeModuleNotFound indicates no finder produced a spec for a module.
	ErrCodeModuleNotFound ErrorCode = "MODULE_NOT_FOUND"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var fatalCodes = map[ErrorCode]bool{
	ErrCodeInvalidAbi:           true,
	ErrCodeInvalidInput:         true,
	ErrCodeProbeExhausted:       true,
	ErrCodeResolutionInProgress: true,
	ErrCodeInternal:             true,
	ErrCodeAbiUnsupported:       false,
	ErrCodeModuleNotFound:       false,
	ErrCodeLibraryLoad:          false,
}

// IsFatalCode reports whether the code describes a broken installation or
// configuration rather than a recoverable dispatch miss.
func IsFatalCode(code ErrorCode) bool {
	return fatalCodes[code]
}
