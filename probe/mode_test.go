package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/mpiabi/errors"
)

func TestDefaultMode(t *testing.T) {
	assert.Equal(t, Lazy|Local, DefaultMode("linux"))
	assert.Equal(t, Lazy|Global, DefaultMode("darwin"))
	assert.Equal(t, Lazy|Local, DefaultMode("freebsd"))
	assert.Equal(t, Mode(0), DefaultMode("windows"))
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"", 0},
		{"lazy|global", Lazy | Global},
		{"RTLD_NOW RTLD_LOCAL", Now | Local},
		{"now,global", Now | Global},
		{"Lazy", Lazy},
	}
	for _, tc := range tests {
		got, err := ParseMode(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseModeInvalid(t *testing.T) {
	for _, in := range []string{"deepbind", "lazy|now", "local|global"} {
		_, err := ParseMode(in)
		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput), in)
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "default", Mode(0).String())
	assert.Equal(t, "lazy|global", (Lazy | Global).String())

	m, err := ParseMode((Now | Local).String())
	require.NoError(t, err)
	assert.Equal(t, Now|Local, m)
}

func TestInstallRoot(t *testing.T) {
	dir := func(p string) string {
		i := len(p) - 1
		for i > 0 && p[i] != '/' {
			i--
		}
		if i <= 0 {
			return "/"
		}
		return p[:i]
	}
	base := func(p string) string {
		for i := len(p) - 1; i >= 0; i-- {
			if p[i] == '/' {
				return p[i+1:]
			}
		}
		return p
	}
	assert.Equal(t, "/opt/intel/mpi/2021", installRoot(dir, base, "/opt/intel/mpi/2021/lib/release/libmpi.so.12"))
	assert.Equal(t, "/opt/intel/mpi", installRoot(dir, base, "/opt/intel/mpi/lib/libmpi.so.12"))
	assert.Equal(t, "/opt/impi", installRoot(dir, base, "/opt/impi/x/libmpi.so.12"))
}

func TestIsFalsy(t *testing.T) {
	for _, v := range []string{"0", "no", "OFF", "false", "disable", " n "} {
		assert.True(t, isFalsy(v), v)
	}
	for _, v := range []string{"", "1", "yes", "on"} {
		assert.False(t, isFalsy(v), v)
	}
}
