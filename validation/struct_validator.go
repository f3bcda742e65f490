package validation

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/mpiabi/abi"
	"github.com/kbukum/mpiabi/errors"
	"github.com/kbukum/mpiabi/probe"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Use mapstructure tag names so messages match configuration keys.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "-" || name == "" {
				return toSnakeCase(fld.Name)
			}
			return name
		})

		_ = validate.RegisterValidation("abiid", validateAbiID)
		_ = validate.RegisterValidation("abilist", validateAbiList)
		_ = validate.RegisterValidation("rtldmode", validateRtldMode)
	})
	return validate
}

// validateAbiID accepts any spelling that canonicalizes to a known ABI.
func validateAbiID(fl validator.FieldLevel) bool {
	_, err := abi.Canonicalize("", fl.Field().String())
	return err == nil
}

// validateAbiList accepts a comma or space separated list of ABI names.
func validateAbiList(fl validator.FieldLevel) bool {
	ids, err := abi.Parse("", fl.Field().String())
	return err == nil && len(ids) > 0
}

func validateRtldMode(fl validator.FieldLevel) bool {
	_, err := probe.ParseMode(fl.Field().String())
	return err == nil
}

// Validate validates a struct using struct tags such as
// `validate:"omitempty,abiid"`.
func Validate(s any) error {
	v := getValidator()
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Validation("validation failed")
	}

	fieldErrors := make([]FieldError, 0, len(validationErrors))
	messages := make([]string, 0, len(validationErrors))

	for _, e := range validationErrors {
		fieldName := fieldPath(e)
		message := formatValidationError(e)
		fieldErrors = append(fieldErrors, FieldError{
			Field:   fieldName,
			Message: message,
		})
		messages = append(messages, fieldName+": "+message)
	}

	appErr := errors.Validation(strings.Join(messages, "; "))
	appErr.Details = map[string]any{
		"fields": fieldErrors,
	}

	return appErr
}

// fieldPath drops the root struct name from the namespace,
// e.g. "Config.mpi4py.mpiabi" becomes "mpi4py.mpiabi".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "abiid":
		return "must be one of: mpich, openmpi, impi, msmpi, mpiabi (got " + quote(e.Value()) + ")"
	case "abilist":
		return "must list MPI ABI names (got " + quote(e.Value()) + ")"
	case "rtldmode":
		return "must combine lazy|now with local|global (got " + quote(e.Value()) + ")"
	case "startswith":
		return "must start with " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	default:
		return "is invalid"
	}
}

func quote(v any) string {
	if s, ok := v.(string); ok {
		return `"` + s + `"`
	}
	return "value"
}

// toSnakeCase converts a field name to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		if r >= 'A' && r <= 'Z' {
			result.WriteRune(r + 32) // lowercase
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
