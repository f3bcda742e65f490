package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kbukum/mpiabi/abi"
	"github.com/kbukum/mpiabi/bootstrap"
	"github.com/kbukum/mpiabi/observability"
	"github.com/kbukum/mpiabi/resolver"
)

func sampleReport() *bootstrap.Report {
	return &bootstrap.Report{
		Name:     "mpiabi",
		Version:  "dev",
		Platform: "linux",
		Mode:     "lazy|local",
		Resolution: &resolver.Resolution{
			ID:     abi.OpenMPI,
			Source: resolver.SourceProbe,
			Path:   "libmpi.so.40",
			Rule:   "openmpi-symbol",
		},
		Directories: []string{"/usr/lib"},
		Filenames:   []string{"libmpi.so", "libmpi.so.12", "libmpi.so.40"},
		Modules: []bootstrap.ModuleReport{
			{Name: "pkg.mpi", Status: "supported", Abi: "openmpi", Suffix: ".openmpi", Origin: "/site/mpi.openmpi.so"},
		},
		Health: *observability.NewServiceHealth("mpiabi", "dev"),
	}
}

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--version"}, &stdout, &stderr)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout.String(), "mpiabi ")
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--format", "xml"}, &stdout, &stderr)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "format: must be one of: text, json, yaml")
}

func TestRunRejectsEmptyModuleName(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--module", "pkg.mpi", "--module", " "}, &stdout, &stderr)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "module[1]: is required")
	assert.Empty(t, stdout.String())
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--bogus"}, &stdout, &stderr)
	assert.Equal(t, exitUsage, code)
}

func TestRunRejectsInvalidAbiFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--abi", "lam", "--config", "/nonexistent/mpiabi.yml"}, &stdout, &stderr)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "mpi4py.mpiabi")
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--help"}, &stdout, &stderr)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stderr.String(), "--libmpi")
}

func TestWriteReportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, sampleReport(), "json"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	res, ok := decoded["resolution"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "openmpi", res["abi"])
	assert.Equal(t, "probe", res["source"])
	assert.Equal(t, "lazy|local", decoded["rtld"])
}

func TestWriteReportYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, sampleReport(), "yaml"))

	var decoded struct {
		Resolution struct {
			Abi  string `yaml:"abi"`
			Path string `yaml:"path"`
		} `yaml:"resolution"`
		Modules []struct {
			Name   string `yaml:"name"`
			Origin string `yaml:"origin"`
		} `yaml:"modules"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "openmpi", decoded.Resolution.Abi)
	assert.Equal(t, "libmpi.so.40", decoded.Resolution.Path)
	require.Len(t, decoded.Modules, 1)
	assert.Equal(t, "/site/mpi.openmpi.so", decoded.Modules[0].Origin)
}

func TestWriteReportText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, sampleReport(), "text"))
	out := buf.String()
	assert.Contains(t, out, "MPI ABI: openmpi (probe)")
	assert.Contains(t, out, "rule: openmpi-symbol")
	assert.Contains(t, out, "pkg.mpi [supported] → /site/mpi.openmpi.so")
}

func TestFlagKeysCoverOverrideFlags(t *testing.T) {
	fs, _ := newFlagSet(&bytes.Buffer{})
	for name := range flagKeys {
		assert.NotNil(t, fs.Lookup(name), "flag %s", name)
	}
}
