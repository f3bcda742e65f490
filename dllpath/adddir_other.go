//go:build !windows

package dllpath

func addDllDirectory(string) error { return nil }
