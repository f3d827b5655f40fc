//go:build linux

package platform

// NewBackend connects to the local X11 display, the reference double for
// the real macOS accessibility backend used in local development and CI.
func NewBackend() (Backend, error) {
	return NewX11Backend()
}
