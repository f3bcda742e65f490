// Package validation checks configuration before any library is probed.
//
// Struct tag validation uses go-playground/validator with three extra tags:
// abiid (a single MPI ABI name in any accepted spelling), abilist (a comma
// or space separated list of them) and rtldmode (dynamic-open flags such as
// "lazy|global").
//
//	type Settings struct {
//	    MPIABI string `mapstructure:"mpiabi" validate:"omitempty,abiid"`
//	}
//	err := validation.Validate(settings)
//
// Cross-field rules use the collecting Validator:
//
//	v := validation.New().Unique("modules", names)
//	if err := v.Validate(); err != nil { ... }
package validation
