//go:build !windows && !((linux || darwin || freebsd) && cgo)

package probe

// SystemOpener returns an opener that always fails: this build has no
// dynamic loader binding.
func SystemOpener() Opener {
	return OpenerFunc(func(string, Mode) (Library, error) {
		return nil, ErrDynamicLoadingUnavailable
	})
}
