package locator

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kbukum/mpiabi/abi"
	"github.com/kbukum/mpiabi/platform/platformtest"
)

func TestDirectoriesExplicitDedup(t *testing.T) {
	l := New(platformtest.Host("linux", nil, nil))
	assert.Equal(t, []string{"/a", "/b"}, l.Directories("/a", "/b", "/a"))
}

func TestDirectoriesExplicitPathList(t *testing.T) {
	l := New(platformtest.Host("linux", map[string]string{EnvVirtualEnv: "/venv"}, nil))
	assert.Equal(t, []string{"/opt/x", "/opt/y", "/opt/z"}, l.Directories("/opt/x:/opt/y", "/opt/z:/opt/x"))
}

func TestDirectoriesPosixOrder(t *testing.T) {
	fs := platformtest.NewFS().AddDir("/usr")
	h := platformtest.Host("linux", map[string]string{EnvVirtualEnv: "/venv"}, fs)
	h.Executable = "/usr/bin/app"

	got := New(h).Directories()
	assert.Equal(t, []string{"/venv/lib", "/home/tester/.local/lib", "/usr/lib", ""}, got)
}

func TestDirectoriesVenvEqualToBaseSkipped(t *testing.T) {
	fs := platformtest.NewFS().AddDir("/usr")
	h := platformtest.Host("linux", map[string]string{EnvVirtualEnv: "/usr", EnvNoUserSite: "1"}, fs)
	h.Executable = "/usr/bin/app"

	assert.Equal(t, []string{"/usr/lib", ""}, New(h).Directories())
}

func TestDirectoriesCondaAndUserBase(t *testing.T) {
	h := platformtest.Host("linux", map[string]string{
		EnvCondaPrefix: "/conda",
		EnvUserBase:    "~/pybase",
	}, nil)
	h.Executable = "/missing/bin/app"

	assert.Equal(t, []string{"/conda/lib", "/home/tester/pybase/lib", ""}, New(h).Directories())
}

func TestDirectoriesDarwin(t *testing.T) {
	h := platformtest.Host("darwin", map[string]string{EnvNoUserSite: "1"}, nil)
	assert.Equal(t, []string{"", "/usr/local/lib", "/opt/homebrew/lib", "/opt/local/lib"}, New(h).Directories())
}

func TestDirectoriesWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses foreign separators")
	}
	h := platformtest.Host("windows", map[string]string{
		EnvNoUserSite: "1",
		EnvVirtualEnv: `C:\venv`,
		EnvIntelRoot:  `C:\Intel`,
		EnvMSMPIRoot:  `C:\MSMPI`,
	}, nil)

	assert.Equal(t, []string{
		`C:\venv\Library\bin`,
		"",
		`C:\Intel\bin\mpi\release`,
		`C:\Intel\bin\release`,
		`C:\Intel\bin`,
		`C:\MSMPI\bin`,
	}, New(h).Directories())
}

func TestInstallDirsKindAndMSMPIBin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses foreign separators")
	}
	h := platformtest.Host("windows", map[string]string{
		EnvIntelRoot: `C:\Intel`,
		EnvIntelKind: "debug",
		EnvMSMPIBin:  `D:\msmpi`,
		EnvMSMPIRoot: `C:\ignored`,
	}, nil)

	dirs := New(h).InstallDirs()
	assert.Len(t, dirs, 4)
	assert.Equal(t, `C:\Intel\bin\mpi\debug`, dirs[0].Dir)
	assert.Equal(t, abi.IMPI, dirs[0].Vendor)
	assert.Equal(t, InstallDir{Dir: `D:\msmpi`, Vendor: abi.MSMPI, DLL: "msmpi.dll"}, dirs[3])
}

func TestFilenames(t *testing.T) {
	linux := New(platformtest.Host("linux", nil, nil))
	assert.Equal(t, []string{"libmpi.so", "libmpi.so.12", "libmpi.so.40", "libmpi_abi.so.0"}, linux.Filenames(abi.None))
	assert.Equal(t, []string{"libmpi.so.40"}, linux.Filenames(abi.OpenMPI))
	assert.Empty(t, linux.Filenames(abi.MSMPI))

	darwin := New(platformtest.Host("darwin", nil, nil))
	assert.Equal(t, "libmpi.dylib", darwin.Filenames(abi.None)[0])

	windows := New(platformtest.Host("windows", nil, nil))
	names := windows.Filenames(abi.None)
	assert.Equal(t, []string{"impi.dll", "msmpi.dll", "mpi_abi.dll"}, names)
	assert.NotContains(t, names, "libmpi.so")
}

func TestBareNameFirstOnPosixOnly(t *testing.T) {
	for _, goos := range []string{"linux", "darwin", "freebsd"} {
		names := New(platformtest.Host(goos, nil, nil)).Filenames(abi.None)
		assert.Equal(t, abi.BareFilename(goos), names[0], goos)
	}
	names := New(platformtest.Host("windows", nil, nil)).Filenames(abi.None)
	for _, n := range names {
		assert.NotContains(t, []string{"libmpi.so", "libmpi.dylib"}, n)
	}
}

func TestCandidatesProduct(t *testing.T) {
	fs := platformtest.NewFS().AddDir("/opt/mpi/lib")
	l := New(platformtest.Host("linux", nil, fs))

	got := l.Candidates([]string{"/opt/mpi/lib"}, abi.None)
	assert.Len(t, got, 4)
	assert.Equal(t, Candidate{Dir: "/opt/mpi/lib", Name: "libmpi.so", File: "/opt/mpi/lib/libmpi.so"}, got[0])
	assert.Equal(t, "/opt/mpi/lib/libmpi_abi.so.0", got[3].Path())
}

func TestCandidatesExplicitFileVerbatim(t *testing.T) {
	l := New(platformtest.Host("linux", nil, nil))

	got := l.Candidates([]string{"/opt/custom/libmpi.so.12.4", "libmpich.so"}, abi.None)
	assert.Equal(t, []Candidate{
		{Dir: "/opt/custom", Name: "libmpi.so.12.4", File: "/opt/custom/libmpi.so.12.4"},
		{Name: "libmpich.so", File: "libmpich.so"},
	}, got)
	assert.True(t, got[1].Bare())
	assert.False(t, got[0].Bare())
}

func TestCandidatesDefaultIncludesBareEntry(t *testing.T) {
	h := platformtest.Host("linux", map[string]string{EnvNoUserSite: "1"}, nil)
	got := New(h).Candidates(nil, abi.None)
	assert.Equal(t, Candidate{Name: "libmpi.so", File: "libmpi.so"}, got[0])
	assert.True(t, got[0].Bare())
}

func TestCandidatesMissingExplicitDirectoryIsNotVerbatim(t *testing.T) {
	l := New(platformtest.Host("linux", nil, nil))

	got := l.Candidates([]string{"/opt/mpich-typo/lib"}, abi.None)
	assert.Len(t, got, 4)
	for _, c := range got {
		assert.Equal(t, "/opt/mpich-typo/lib", c.Dir)
		assert.NotEqual(t, "/opt/mpich-typo/lib", c.Path())
	}
}

func TestCandidatesExistingFileVerbatim(t *testing.T) {
	fs := platformtest.NewFS().AddFile("/opt/custom/mpi-runtime")
	l := New(platformtest.Host("linux", nil, fs))

	got := l.Candidates([]string{"/opt/custom/mpi-runtime"}, abi.None)
	assert.Equal(t, []Candidate{{Dir: "/opt/custom", Name: "mpi-runtime", File: "/opt/custom/mpi-runtime"}}, got)
}

func TestLooksLikeLibrary(t *testing.T) {
	tests := []struct {
		goos string
		name string
		want bool
	}{
		{"linux", "libmpi.so", true},
		{"linux", "libmpi.so.12.4", true},
		{"linux", "libmpi_abi.so.0", true},
		{"linux", "lib", false},
		{"linux", "mpi.so", false},
		{"darwin", "libmpi.40.dylib", true},
		{"darwin", "libmpi.so", true},
		{"windows", "msmpi.dll", true},
		{"windows", "IMPI.DLL", true},
		{"windows", "bin", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LooksLikeLibrary(tt.goos, tt.name), "%s/%s", tt.goos, tt.name)
	}
}
