package version

import (
	"runtime"
	"strings"
	"testing"
)

func saveAndRestore() func() {
	origVersion, origCommit, origBuildTime := Version, GitCommit, BuildTime
	return func() {
		Version = origVersion
		GitCommit = origCommit
		BuildTime = origBuildTime
	}
}

func TestGetDefaults(t *testing.T) {
	defer saveAndRestore()()
	Version = "dev"
	GitCommit = ""
	BuildTime = ""

	info := Get()
	if info.Version != "dev" {
		t.Errorf("expected version 'dev', got %q", info.Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("expected go version %q, got %q", runtime.Version(), info.GoVersion)
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("unexpected platform %q", info.Platform)
	}
}

func TestGetWithLinkerValues(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.2.0"
	GitCommit = "abc1234def"
	BuildTime = "2026-01-15T10:30:00Z"

	info := Get()
	if info.GitCommit != "abc1234" {
		t.Errorf("expected commit truncated to 'abc1234', got %q", info.GitCommit)
	}
	if info.BuildDate.Year() != 2026 {
		t.Errorf("expected build year 2026, got %d", info.BuildDate.Year())
	}
	if !strings.Contains(info.String(), "built 2026-01-15T10:30:00Z") {
		t.Errorf("expected build date in %q", info.String())
	}
}

func TestShort(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{Version: "dev"}, "dev"},
		{Info{Version: "1.0.0", GitCommit: "abc1234"}, "1.0.0-abc1234"},
		{Info{Version: "1.0.0", GitCommit: "abc1234", Dirty: true}, "1.0.0-abc1234-dirty"},
	}
	for _, tc := range tests {
		if got := tc.info.Short(); got != tc.want {
			t.Errorf("Short() = %q, want %q", got, tc.want)
		}
	}
}

func TestString(t *testing.T) {
	info := Info{Version: "1.0.0", Platform: "linux/amd64", GoVersion: "go1.26.0"}
	if got := info.String(); got != "1.0.0 (linux/amd64, go1.26.0)" {
		t.Errorf("unexpected String() %q", got)
	}
}

func TestGetShortVersionPrefix(t *testing.T) {
	defer saveAndRestore()()
	Version = "9.9.9"
	if sv := GetShortVersion(); !strings.HasPrefix(sv, "9.9.9") {
		t.Errorf("expected short version to start with 9.9.9, got %q", sv)
	}
}
