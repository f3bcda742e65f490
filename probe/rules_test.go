package probe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kbukum/mpiabi/abi"
	"github.com/kbukum/mpiabi/probe"
	"github.com/kbukum/mpiabi/probe/probetest"
)

func TestAbiVersionRule(t *testing.T) {
	rule := probe.AbiVersionRule()

	id, ok := rule.Match(probetest.ABI(1, 0))
	assert.True(t, ok)
	assert.Equal(t, abi.MPIABI, id)

	_, ok = rule.Match(probetest.ABI(0, 9))
	assert.False(t, ok, "major version zero is not an ABI declaration")

	_, ok = rule.Match(probetest.MPICH())
	assert.False(t, ok)
}

func TestDefaultRulesPosix(t *testing.T) {
	rules := probe.DefaultRules("linux")
	tests := []struct {
		name string
		lib  *probetest.Library
		want abi.ID
		rule string
	}{
		{"abi wins over vendor symbols", probetest.ABI(1, 0).WithVersion(probe.SymOpenMPI, 0, 0), abi.MPIABI, "abi-version"},
		{"open mpi symbol", probetest.OpenMPI(), abi.OpenMPI, "openmpi-symbol"},
		{"mpich fallback", probetest.MPICH(), abi.MPICH, "mpich-fallback"},
		{"intel mpi is mpich family", probetest.IntelMPI(), abi.MPICH, "mpich-fallback"},
		{"zero abi major falls through", probetest.ABI(0, 0), abi.MPICH, "mpich-fallback"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, rule, ok := probe.Evaluate(rules, tc.lib)
			assert.True(t, ok)
			assert.Equal(t, tc.want, id)
			assert.Equal(t, tc.rule, rule)
		})
	}
}

func TestDefaultRulesWindows(t *testing.T) {
	rules := probe.DefaultRules("windows")

	id, _, _ := probe.Evaluate(rules, probetest.MSMPI())
	assert.Equal(t, abi.MSMPI, id)

	id, _, _ = probe.Evaluate(rules, probetest.MPICH())
	assert.Equal(t, abi.IMPI, id)

	id, _, _ = probe.Evaluate(rules, probetest.ABI(1, 0))
	assert.Equal(t, abi.MPIABI, id)
}

func TestEvaluateNoMatch(t *testing.T) {
	rules := []probe.Rule{probe.SymbolRule("only-ompi", probe.SymOpenMPI, abi.OpenMPI)}
	_, _, ok := probe.Evaluate(rules, probetest.MPICH())
	assert.False(t, ok)
}
