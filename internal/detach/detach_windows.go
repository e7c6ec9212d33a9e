//go:build windows

package detach

import "errors"

// ErrNamedPipeUnsupported is returned by ListenPipe: no named-pipe
// library is exercised anywhere in the example corpus (the nearest
// relative, go-ole, only talks to COM), so Windows attach support is an
// explicit stub rather than a fabricated dependency.
var ErrNamedPipeUnsupported = errors.New("detach: windows named-pipe attach channel is not implemented")

// PipePath returns the conventional \\.\pipe\autogitpull-<name> name.
func PipePath(name string) string {
	return `\\.\pipe\autogitpull-` + name
}

// ListenPipe always fails on this build; callers fall back to --silent
// operation without a detach channel on Windows.
func ListenPipe(name string) (*Server, error) {
	return nil, ErrNamedPipeUnsupported
}
