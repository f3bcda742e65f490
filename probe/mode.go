package probe

import (
	"strings"

	"github.com/kbukum/mpiabi/errors"
)

// Mode holds dynamic-open flags. The zero value selects the platform default.
type Mode uint

const (
	Lazy Mode = 1 << iota
	Now
	Local
	Global
)

var modeNames = []struct {
	mode Mode
	name string
}{
	{Lazy, "lazy"},
	{Now, "now"},
	{Local, "local"},
	{Global, "global"},
}

// DefaultMode returns the open flags used for MPI libraries on goos.
func DefaultMode(goos string) Mode {
	switch goos {
	case "windows":
		return 0
	case "darwin":
		return Lazy | Global
	default:
		return Lazy | Local
	}
}

// ParseMode parses a "|", "," or space separated list such as
// "lazy|global" or "RTLD_NOW RTLD_LOCAL". The empty string yields 0.
func ParseMode(s string) (Mode, error) {
	var m Mode
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '|' || r == ',' || r == ' ' || r == '+'
	})
	for _, f := range fields {
		name := strings.TrimPrefix(strings.ToLower(f), "rtld_")
		found := false
		for _, mn := range modeNames {
			if mn.name == name {
				m |= mn.mode
				found = true
				break
			}
		}
		if !found {
			return 0, errors.InvalidInput("rtld", "unknown open flag "+f)
		}
	}
	if m&Lazy != 0 && m&Now != 0 {
		return 0, errors.InvalidInput("rtld", "lazy and now are exclusive")
	}
	if m&Local != 0 && m&Global != 0 {
		return 0, errors.InvalidInput("rtld", "local and global are exclusive")
	}
	return m, nil
}

// String renders m in ParseMode syntax.
func (m Mode) String() string {
	if m == 0 {
		return "default"
	}
	var parts []string
	for _, mn := range modeNames {
		if m&mn.mode != 0 {
			parts = append(parts, mn.name)
		}
	}
	return strings.Join(parts, "|")
}
