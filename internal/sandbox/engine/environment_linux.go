//go:build linux

package engine

import (
	"os"
	"path/filepath"
	"syscall"
)

// killTree kills every process in the environment. The cgroup kill file
// reaches processes that detached from the group leader; the process-group
// signal is the fallback when cgroups are disabled.
func (e *Environment) killTree() error {
	if e.CgroupPath != "" {
		killPath := filepath.Join(e.CgroupPath, "cgroup.kill")
		if _, err := os.Stat(killPath); err == nil {
			return os.WriteFile(killPath, []byte("1"), 0600)
		}
	}
	pgid := int(e.pgid.Load())
	if pgid <= 0 {
		return nil
	}
	if err := syscall.Kill(-pgid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		return err
	}
	return nil
}
