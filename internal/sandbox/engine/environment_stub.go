//go:build !linux

package engine

// killTree is a no-op on platforms without sandbox support; environments
// there never own a live process tree.
func (e *Environment) killTree() error {
	return nil
}
