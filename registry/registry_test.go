package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/mpiabi/abi"
	"github.com/kbukum/mpiabi/errors"
)

type fixedSource struct {
	id    abi.ID
	err   error
	calls int
}

func (s *fixedSource) Resolve(context.Context) (abi.ID, error) {
	s.calls++
	return s.id, s.err
}

func TestRoundTrip(t *testing.T) {
	src := &fixedSource{id: abi.OpenMPI}
	r := New("linux", src)
	require.NoError(t, r.Register("pkg.ext", "OpenMPI"))

	suffix, ok, err := r.SuffixFor(context.Background(), "pkg.ext")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ".openmpi", suffix)

	src.id = abi.MPICH
	m, err := r.Lookup(context.Background(), "pkg.ext")
	require.NoError(t, err)
	assert.Equal(t, Unsupported, m.Status)
	assert.Equal(t, abi.MPICH, m.Abi)

	_, ok, err = r.SuffixFor(context.Background(), "pkg.ext")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNotRegisteredSkipsResolution(t *testing.T) {
	src := &fixedSource{err: errors.ProbeExhausted(nil)}
	r := New("linux", src)

	m, err := r.Lookup(context.Background(), "json")
	require.NoError(t, err)
	assert.Equal(t, NotRegistered, m.Status)
	assert.Zero(t, src.calls)
}

func TestResolutionErrorPropagates(t *testing.T) {
	src := &fixedSource{err: errors.ProbeExhausted(nil)}
	r := New("linux", src)
	require.NoError(t, r.Register("pkg.mpi", "mpich"))

	_, err := r.Lookup(context.Background(), "pkg.mpi")
	assert.ErrorIs(t, err, errors.ErrProbeExhausted)
}

func TestDefaultVariantHasEmptySuffix(t *testing.T) {
	src := &fixedSource{id: abi.MPICH}
	r := New("linux", src)
	require.NoError(t, r.RegisterDefault("pkg.mpi", "mpich"))
	require.NoError(t, r.Register("pkg.mpi", "openmpi, mpiabi"))

	m, err := r.Lookup(context.Background(), "pkg.mpi")
	require.NoError(t, err)
	assert.Equal(t, Match{Status: Supported, Abi: abi.MPICH}, m)

	src.id = abi.MPIABI
	m, err = r.Lookup(context.Background(), "pkg.mpi")
	require.NoError(t, err)
	assert.Equal(t, ".mpiabi", m.Suffix)

	def, ok := r.Default("pkg.mpi")
	assert.True(t, ok)
	assert.Equal(t, abi.MPICH, def)
}

func TestRegisterIdempotentAndGrowOnly(t *testing.T) {
	r := New("linux", &fixedSource{})
	require.NoError(t, r.Register("pkg.mpi", "mpich"))
	require.NoError(t, r.Register("pkg.mpi", "MPICH", "open-mpi"))
	require.NoError(t, r.Register("pkg.mpi", "mpich"))

	assert.Equal(t, []abi.ID{abi.MPICH, abi.OpenMPI}, r.Variants("pkg.mpi"))
	assert.Equal(t, []string{"pkg.mpi"}, r.Modules())
	assert.True(t, r.Registered("pkg.mpi"))
	assert.Nil(t, r.Variants("other"))
}

func TestRegisterCanonicalizesPerPlatform(t *testing.T) {
	r := New("windows", &fixedSource{id: abi.IMPI})
	require.NoError(t, r.Register("pkg.mpi", "mpich"))
	assert.Equal(t, []abi.ID{abi.IMPI}, r.Variants("pkg.mpi"))
}

func TestRegisterErrors(t *testing.T) {
	r := New("linux", &fixedSource{})
	assert.ErrorIs(t, r.Register("pkg.mpi", "lam"), errors.ErrInvalidAbi)
	assert.True(t, errors.HasCode(r.Register(" ", "mpich"), errors.ErrCodeInvalidInput))
	assert.True(t, errors.HasCode(r.RegisterDefault("pkg.mpi", "mpich,openmpi"), errors.ErrCodeInvalidInput))
	assert.False(t, r.Registered("pkg.mpi"))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "supported", Supported.String())
	assert.Equal(t, "unsupported", Unsupported.String())
	assert.Equal(t, "not-registered", NotRegistered.String())
}
