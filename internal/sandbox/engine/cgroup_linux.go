//go:build linux

package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"execbox/internal/sandbox/spec"
)

func createJobCgroup(root, jobID string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("cgroup root is required")
	}
	cgroupPath := filepath.Join(root, jobID)
	if err := os.MkdirAll(cgroupPath, 0750); err != nil {
		return "", fmt.Errorf("create cgroup path: %w", err)
	}
	return cgroupPath, nil
}

func applyCgroupLimits(cgroupPath string, limits spec.ResourceLimit) error {
	pidsValue := "max"
	if limits.PIDs > 0 {
		pidsValue = strconv.FormatInt(limits.PIDs, 10)
	}
	if err := writeCgroupValue(cgroupPath, "pids.max", pidsValue); err != nil {
		return err
	}
	if limits.MemoryBytes > 0 {
		if err := writeCgroupValue(cgroupPath, "memory.max", strconv.FormatInt(limits.MemoryBytes, 10)); err != nil {
			return err
		}
		// No swap escape hatch past the memory ceiling.
		if err := writeCgroupValue(cgroupPath, "memory.swap.max", "0"); err != nil {
			return err
		}
	}
	if err := writeCgroupValue(cgroupPath, "cpu.max", "max 100000"); err != nil {
		return err
	}
	return nil
}

func addProcessToCgroup(cgroupPath string, pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid")
	}
	return writeCgroupValue(cgroupPath, "cgroup.procs", strconv.Itoa(pid))
}

func wasOomKilled(cgroupPath string) bool {
	if cgroupPath == "" {
		return false
	}
	data, err := os.ReadFile(filepath.Join(cgroupPath, "memory.events"))
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		if fields[0] == "oom_kill" {
			val, _ := strconv.ParseInt(fields[1], 10, 64)
			return val > 0
		}
	}
	return false
}

func memoryPeakBytes(cgroupPath string, state *os.ProcessState) int64 {
	if cgroupPath != "" {
		if val, err := readCgroupInt(cgroupPath, "memory.peak"); err == nil && val > 0 {
			return val
		}
	}
	if state == nil {
		return 0
	}
	if usage, ok := state.SysUsage().(*syscall.Rusage); ok {
		return usage.Maxrss * 1024
	}
	return 0
}

// cpuUsageMs reads cumulative CPU time from cpu.stat (usage_usec).
func cpuUsageMs(cgroupPath string) int64 {
	if cgroupPath == "" {
		return 0
	}
	data, err := os.ReadFile(filepath.Join(cgroupPath, "cpu.stat"))
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		if fields[0] == "usage_usec" {
			val, _ := strconv.ParseInt(fields[1], 10, 64)
			return val / 1000
		}
	}
	return 0
}

func readCgroupInt(cgroupPath, name string) (int64, error) {
	data, err := os.ReadFile(filepath.Join(cgroupPath, name))
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
}

func writeCgroupValue(cgroupPath, name, value string) error {
	return os.WriteFile(filepath.Join(cgroupPath, name), []byte(value), 0640)
}
