//go:build darwin

package platform

// NewBackend returns the osascript-driven Accessibility API backend.
func NewBackend() (Backend, error) {
	return NewDarwinBackend(), nil
}
