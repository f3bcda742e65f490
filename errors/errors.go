package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// AppError is the unified error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Fatal reports whether the error indicates a broken environment.
	Fatal bool `json:"fatal"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is matches another *AppError with the same code, so sentinel values such as
// ErrProbeExhausted work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic fatal detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Fatal:   IsFatalCode(code),
	}
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidAbi           = New(ErrCodeInvalidAbi, "invalid MPI ABI")
	ErrProbeExhausted       = New(ErrCodeProbeExhausted, "no MPI library found")
	ErrResolutionInProgress = New(ErrCodeResolutionInProgress, "MPI ABI resolution in progress")
	ErrAbiUnsupported       = New(ErrCodeAbiUnsupported, "unsupported MPI ABI")
	ErrModuleNotFound       = New(ErrCodeModuleNotFound, "module not found")
)

// --- Constructors ---

// InvalidAbi creates an error for an ABI name that does not canonicalize.
func InvalidAbi(name string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidAbi, Message: fmt.Sprintf("unknown MPI ABI %q", name),
		Fatal:   true,
		Details: map[string]any{"abi": name},
	}
}

// Validation creates an error for configuration validation failures.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		Fatal: true,
	}
}

// InvalidInput creates an error for a single invalid configuration field.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("invalid input: %s", reason),
		Fatal: true, Details: details,
	}
}

// ProbeFailure records a single candidate the prober rejected.
type ProbeFailure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ProbeExhausted creates the aggregated error returned when every candidate
// library failed to open or verify. The message enumerates each attempt.
func ProbeExhausted(failures []ProbeFailure) *AppError {
	var b strings.Builder
	b.WriteString("cannot load MPI library")
	if len(failures) == 0 {
		b.WriteString(": no candidates")
	}
	for _, f := range failures {
		b.WriteString("\n  ")
		if f.Path == "" {
			b.WriteString("<default>")
		} else {
			b.WriteString(f.Path)
		}
		b.WriteString(": ")
		b.WriteString(f.Reason)
	}
	return &AppError{
		Code: ErrCodeProbeExhausted, Message: b.String(),
		Fatal:   true,
		Details: map[string]any{"failures": failures},
	}
}

// LibraryLoad creates an error for a library the platform loader rejected.
func LibraryLoad(path string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeLibraryLoad, Message: fmt.Sprintf("cannot load %s", path),
		Details: map[string]any{"path": path}, Cause: cause,
	}
}

// ResolutionInProgress creates an error for a re-entrant resolution.
func ResolutionInProgress() *AppError {
	return &AppError{
		Code: ErrCodeResolutionInProgress, Message: "MPI ABI resolution re-entered while probing",
		Fatal: true,
	}
}

// AbiUnsupported creates the dispatch mismatch error for a module.
func AbiUnsupported(module, abi string) *AppError {
	return &AppError{
		Code: ErrCodeAbiUnsupported, Message: fmt.Sprintf("unsupported MPI ABI %q for module %q", abi, module),
		Details: map[string]any{"module": module, "abi": abi},
	}
}

// ModuleNotFound creates the ordinary import-not-found error.
func ModuleNotFound(module string) *AppError {
	return &AppError{
		Code: ErrCodeModuleNotFound, Message: fmt.Sprintf("no module named %q", module),
		Details: map[string]any{"module": module},
	}
}

// Internal creates an error for an unexpected internal failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected error occurred",
		Fatal: true, Cause: cause,
	}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
