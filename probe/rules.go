package probe

import (
	"github.com/kbukum/mpiabi/abi"
)

// Rule maps a verified library to an ABI when its predicate holds.
type Rule struct {
	Name  string
	Match func(lib Library) (abi.ID, bool)
}

// AbiVersionRule selects mpiabi when the library reports a nonzero major
// version through MPI_Abi_get_version.
func AbiVersionRule() Rule {
	return Rule{
		Name: "abi-version",
		Match: func(lib Library) (abi.ID, bool) {
			if !lib.HasSymbol(SymAbiGetVersion) {
				return abi.None, false
			}
			major, _, err := lib.CallVersion(SymAbiGetVersion)
			if err != nil || major <= 0 {
				return abi.None, false
			}
			return abi.MPIABI, true
		},
	}
}

// SymbolRule selects id when the library exports symbol.
func SymbolRule(name, symbol string, id abi.ID) Rule {
	return Rule{
		Name: name,
		Match: func(lib Library) (abi.ID, bool) {
			return id, lib.HasSymbol(symbol)
		},
	}
}

// FallbackRule always selects id.
func FallbackRule(name string, id abi.ID) Rule {
	return Rule{
		Name:  name,
		Match: func(Library) (abi.ID, bool) { return id, true },
	}
}

// DefaultRules returns the identification chain for goos.
func DefaultRules(goos string) []Rule {
	if abi.IsPOSIX(goos) {
		return []Rule{
			AbiVersionRule(),
			SymbolRule("openmpi-symbol", SymOpenMPI, abi.OpenMPI),
			FallbackRule("mpich-fallback", abi.MPICH),
		}
	}
	return []Rule{
		AbiVersionRule(),
		SymbolRule("msmpi-symbol", SymMSMPI, abi.MSMPI),
		FallbackRule("impi-fallback", abi.IMPI),
	}
}

// Evaluate runs rules in order and returns the first match.
func Evaluate(rules []Rule, lib Library) (abi.ID, string, bool) {
	for _, r := range rules {
		if id, ok := r.Match(lib); ok {
			return id, r.Name, true
		}
	}
	return abi.None, "", false
}
