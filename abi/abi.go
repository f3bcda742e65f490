// Package abi defines the closed set of MPI ABI families and the native
// library naming conventions tied to each of them.
package abi

import (
	"slices"
	"strings"

	"github.com/kbukum/mpiabi/errors"
)

// ID identifies one MPI ABI family.
type ID string

const (
	// None is the zero value, meaning "not set" or "not yet resolved".
	None    ID = ""
	MPICH   ID = "mpich"
	OpenMPI ID = "openmpi"
	IMPI    ID = "impi"
	MSMPI   ID = "msmpi"
	MPIABI  ID = "mpiabi"
)

var all = []ID{MPICH, OpenMPI, IMPI, MSMPI, MPIABI}

// aliases maps separator-stripped, lower-cased spellings to canonical IDs.
var aliases = map[string]ID{
	"mpich":        MPICH,
	"openmpi":      OpenMPI,
	"ompi":         OpenMPI,
	"impi":         IMPI,
	"intelmpi":     IMPI,
	"msmpi":        MSMPI,
	"microsoftmpi": MSMPI,
	"mpiabi":       MPIABI,
	"abi":          MPIABI,
}

// All returns every known ID.
func All() []ID {
	return slices.Clone(all)
}

// String returns the canonical token.
func (id ID) String() string { return string(id) }

// Valid reports whether id is one of the known families.
func (id ID) Valid() bool {
	return slices.Contains(all, id)
}

// Suffix returns the extension-module filename tag for id, e.g. ".openmpi".
func (id ID) Suffix() string {
	if id == None {
		return ""
	}
	return "." + string(id)
}

// IsPOSIX reports whether goos follows POSIX shared-library conventions.
func IsPOSIX(goos string) bool {
	return goos != "windows"
}

// Normalize strips separators and lower-cases s.
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}

// Canonicalize resolves a user supplied ABI spelling to its canonical ID.
// On Windows "mpich" names the Intel MPI build; on POSIX the two stay
// distinct. Unknown names fail with an INVALID_ABI error.
func Canonicalize(goos, s string) (ID, error) {
	id, ok := aliases[Normalize(s)]
	if !ok {
		return None, errors.InvalidAbi(s)
	}
	if id == MPICH && !IsPOSIX(goos) {
		return IMPI, nil
	}
	return id, nil
}

// Parse splits a comma or whitespace separated list and canonicalizes each
// entry, dropping duplicates.
func Parse(goos, spec string) ([]ID, error) {
	fields := strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	var ids []ID
	for _, f := range fields {
		id, err := Canonicalize(goos, f)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
