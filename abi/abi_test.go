package abi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/mpiabi/errors"
)

func TestCanonicalizeAliases(t *testing.T) {
	cases := map[ID][]string{
		MPICH:   {"mpich", "MPICH", "Mpich", " mpich "},
		OpenMPI: {"openmpi", "Open-MPI", "OPENMPI", "open_mpi", "Open MPI", "ompi"},
		IMPI:    {"impi", "Intel MPI", "intel-mpi", "INTEL_MPI"},
		MSMPI:   {"msmpi", "MS-MPI", "Microsoft MPI", "microsoft_mpi"},
		MPIABI:  {"mpiabi", "MPI-ABI", "mpi_abi", "abi"},
	}
	for want, spellings := range cases {
		for _, s := range spellings {
			got, err := Canonicalize("linux", s)
			require.NoError(t, err, s)
			assert.Equal(t, want, got, s)
		}
	}
}

func TestCanonicalizePlatformAliasing(t *testing.T) {
	got, err := Canonicalize("windows", "MPICH")
	require.NoError(t, err)
	assert.Equal(t, IMPI, got)

	got, err = Canonicalize("linux", "impi")
	require.NoError(t, err)
	assert.Equal(t, IMPI, got, "impi is not folded into mpich on POSIX")

	got, err = Canonicalize("darwin", "mpich")
	require.NoError(t, err)
	assert.Equal(t, MPICH, got)
}

func TestCanonicalizeUnknown(t *testing.T) {
	_, err := Canonicalize("linux", "lam-mpi")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidAbi)

	_, err = Canonicalize("linux", "")
	assert.ErrorIs(t, err, errors.ErrInvalidAbi)
}

func TestParse(t *testing.T) {
	ids, err := Parse("linux", "MPICH, Open-MPI openmpi,mpiabi")
	require.NoError(t, err)
	assert.Equal(t, []ID{MPICH, OpenMPI, MPIABI}, ids)

	_, err = Parse("linux", "mpich,bogus")
	assert.ErrorIs(t, err, errors.ErrInvalidAbi)

	ids, err = Parse("linux", "")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestValidAndSuffix(t *testing.T) {
	for _, id := range All() {
		assert.True(t, id.Valid())
		assert.Equal(t, "."+string(id), id.Suffix())
	}
	assert.False(t, ID("lam").Valid())
	assert.False(t, None.Valid())
	assert.Empty(t, None.Suffix())
}

func TestFilename(t *testing.T) {
	tests := []struct {
		goos string
		id   ID
		want string
		ok   bool
	}{
		{"linux", MPICH, "libmpi.so.12", true},
		{"linux", OpenMPI, "libmpi.so.40", true},
		{"linux", MPIABI, "libmpi_abi.so.0", true},
		{"linux", IMPI, "libmpi.so.12", true},
		{"linux", MSMPI, "", false},
		{"freebsd", OpenMPI, "libmpi.so.40", true},
		{"darwin", MPICH, "libmpi.12.dylib", true},
		{"darwin", OpenMPI, "libmpi.40.dylib", true},
		{"darwin", MPIABI, "libmpi_abi.0.dylib", true},
		{"windows", IMPI, "impi.dll", true},
		{"windows", MSMPI, "msmpi.dll", true},
		{"windows", MPIABI, "mpi_abi.dll", true},
		{"windows", OpenMPI, "", false},
	}
	for _, tc := range tests {
		got, ok := Filename(tc.goos, tc.id)
		assert.Equal(t, tc.ok, ok, "%s/%s", tc.goos, tc.id)
		assert.Equal(t, tc.want, got, "%s/%s", tc.goos, tc.id)
	}
}

func TestEveryIDHasOneLibraryPerPlatform(t *testing.T) {
	for _, id := range All() {
		posix, okPosix := id.LibraryBase("linux")
		win, okWin := id.LibraryBase("windows")
		assert.True(t, okPosix || okWin, "%s has no library at all", id)
		if okPosix {
			_, hasVersion := id.Version()
			assert.True(t, hasVersion, "%s lacks a POSIX version", id)
			assert.NotEmpty(t, posix)
		}
		if okWin {
			assert.NotEmpty(t, win)
		}
	}
}

func TestBareFilename(t *testing.T) {
	assert.Equal(t, "libmpi.so", BareFilename("linux"))
	assert.Equal(t, "libmpi.dylib", BareFilename("darwin"))
	assert.Empty(t, BareFilename("windows"))
}

func TestProbed(t *testing.T) {
	assert.Equal(t, []ID{MPICH, OpenMPI, MPIABI}, Probed("linux"))
	assert.Equal(t, []ID{IMPI, MSMPI, MPIABI}, Probed("windows"))
}
