//go:build windows

package dllpath

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func addDllDirectory(dir string) error {
	p, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return err
	}
	if _, err := windows.AddDllDirectory(p); err != nil {
		return fmt.Errorf("AddDllDirectory %s: %w", dir, err)
	}
	return nil
}
