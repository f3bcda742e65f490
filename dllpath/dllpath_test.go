package dllpath

import (
	"context"
	"fmt"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/mpiabi/locator"
	"github.com/kbukum/mpiabi/platform"
	"github.com/kbukum/mpiabi/platform/platformtest"
)

type recorder struct{ dirs []string }

func (r *recorder) add(dir string) error {
	r.dirs = append(r.dirs, dir)
	return nil
}

func windowsHost(t *testing.T, env map[string]string, fs *platformtest.FS) *platform.Host {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses foreign separators")
	}
	return platformtest.Host("windows", env, fs)
}

func TestDiscoverIntelFirstMatchAndMSMPI(t *testing.T) {
	fs := platformtest.NewFS().
		AddFile(`C:\Intel\bin\release\impi.dll`).
		AddFile(`C:\Intel\bin\impi.dll`).
		AddFile(`C:\MSMPI\Bin\msmpi.dll`)
	host := windowsHost(t, map[string]string{
		locator.EnvIntelRoot: `C:\Intel`,
		locator.EnvMSMPIBin:  `C:\MSMPI\Bin`,
	}, fs)

	i := New(host, locator.New(host))
	assert.Equal(t, []string{`C:\Intel\bin\release`, `C:\MSMPI\Bin`}, i.Discover())
}

func TestDiscoverSkipsDirsWithoutDLL(t *testing.T) {
	fs := platformtest.NewFS().AddDir(`C:\Intel\bin`).AddFile(`D:\MSMPI\bin\msmpi.dll`)
	host := windowsHost(t, map[string]string{
		locator.EnvIntelRoot: `C:\Intel`,
		locator.EnvMSMPIRoot: `D:\MSMPI`,
	}, fs)

	assert.Equal(t, []string{`D:\MSMPI\bin`}, New(host, locator.New(host)).Discover())
}

func TestInstallPrependsPathOnce(t *testing.T) {
	fs := platformtest.NewFS().AddFile(`C:\Intel\bin\mpi\release\impi.dll`)
	host := windowsHost(t, map[string]string{
		locator.EnvIntelRoot: `C:\Intel`,
		"PATH":               `C:\Windows`,
	}, fs)
	rec := &recorder{}
	i := New(host, locator.New(host), WithAddDirFunc(rec.add))

	added, err := i.Install(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{`C:\Intel\bin\mpi\release`}, added)
	assert.Equal(t, `C:\Intel\bin\mpi\release;C:\Windows`, host.Getenv("PATH"))

	added, err = i.Install(context.Background())
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Equal(t, []string{`C:\Intel\bin\mpi\release`}, rec.dirs)
	assert.Equal(t, `C:\Intel\bin\mpi\release;C:\Windows`, host.Getenv("PATH"))
	assert.Equal(t, []string{`C:\Intel\bin\mpi\release`}, i.Added())
}

func TestInstallDedupesByRealPath(t *testing.T) {
	fs := platformtest.NewFS().
		AddFile(`C:\Intel\bin\impi.dll`, `C:\MSMPI\bin\msmpi.dll`).
		AddLink(`C:\MSMPI\bin`, `C:\Intel\bin`)
	host := windowsHost(t, map[string]string{
		locator.EnvIntelRoot: `C:\Intel`,
		locator.EnvMSMPIRoot: `C:\MSMPI`,
	}, fs)
	rec := &recorder{}

	added, err := New(host, locator.New(host), WithAddDirFunc(rec.add)).Install(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{`C:\Intel\bin`}, added)
	assert.Len(t, rec.dirs, 1)
}

func TestInstallNoopOffWindows(t *testing.T) {
	fs := platformtest.NewFS().AddFile("/opt/intel/bin/impi.dll")
	host := platformtest.Host("linux", map[string]string{locator.EnvIntelRoot: "/opt/intel", "PATH": "/usr/bin"}, fs)
	rec := &recorder{}

	added, err := New(host, locator.New(host), WithAddDirFunc(rec.add)).Install(context.Background())
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Empty(t, rec.dirs)
	assert.Equal(t, "/usr/bin", host.Getenv("PATH"))
}

func TestInstallAddDirFailure(t *testing.T) {
	fs := platformtest.NewFS().AddFile(`C:\MSMPI\bin\msmpi.dll`)
	host := windowsHost(t, map[string]string{locator.EnvMSMPIBin: `C:\MSMPI\bin`}, fs)
	i := New(host, locator.New(host), WithAddDirFunc(func(string) error { return fmt.Errorf("access denied") }))

	_, err := i.Install(context.Background())
	assert.EqualError(t, err, "access denied")
	assert.Empty(t, i.Added())
	assert.Empty(t, host.Getenv("PATH"))
}
