package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// Well-known file names inside the scratch directory.
const (
	StdinFile      = "stdin.txt"
	StdoutFile     = "stdout.log"
	StderrFile     = "stderr.log"
	CompileLogFile = "compile.log"
)

// Environment is the disposable isolation unit for exactly one job.
// It exclusively owns a scratch directory and the job's process tree;
// no process may outlive it.
type Environment struct {
	ID         string
	ScratchDir string
	CgroupPath string

	pgid       atomic.Int64
	terminated atomic.Bool
	tornDown   atomic.Bool
}

// NewEnvironment wraps an already-created scratch directory and cgroup.
func NewEnvironment(id, scratchDir, cgroupPath string) *Environment {
	return &Environment{ID: id, ScratchDir: scratchDir, CgroupPath: cgroupPath}
}

// WriteFile places a file into the scratch directory. The name must be a
// bare file name; paths escaping the scratch directory are rejected.
func (e *Environment) WriteFile(name string, data []byte) error {
	if err := validateFileName(name); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(e.ScratchDir, name), data, 0644)
}

// ReadOutput reads at most limit bytes of a scratch file and reports
// whether the file was larger than the limit.
func (e *Environment) ReadOutput(name string, limit int64) ([]byte, bool, error) {
	if err := validateFileName(name); err != nil {
		return nil, false, err
	}
	path := filepath.Join(e.ScratchDir, name)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, false, err
	}
	if limit <= 0 || info.Size() <= limit {
		data, err := io.ReadAll(file)
		return data, false, err
	}
	data := make([]byte, limit)
	if _, err := io.ReadFull(file, data); err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// HostPath returns the host-side path of a scratch file.
func (e *Environment) HostPath(name string) string {
	return filepath.Join(e.ScratchDir, name)
}

// SetPgid records the process group once the job's process has started.
func (e *Environment) SetPgid(pgid int) {
	e.pgid.Store(int64(pgid))
}

// Terminate force-kills the environment's entire process tree. It is
// idempotent and is the single termination path shared by limiter
// breaches, cancellation and post-result cleanup.
func (e *Environment) Terminate() error {
	if !e.terminated.CompareAndSwap(false, true) {
		return nil
	}
	return e.killTree()
}

// Terminated reports whether a forced kill was issued.
func (e *Environment) Terminated() bool {
	return e.terminated.Load()
}

// Teardown reclaims everything the environment owns: the process tree,
// the cgroup and the scratch directory. It is idempotent and must succeed
// at reclaiming resources even when the job's process ignores signals,
// which is why termination goes through the cgroup kill when available.
func (e *Environment) Teardown() error {
	if !e.tornDown.CompareAndSwap(false, true) {
		return nil
	}
	var errs []string
	if err := e.Terminate(); err != nil {
		errs = append(errs, fmt.Sprintf("terminate: %v", err))
	}
	if e.CgroupPath != "" {
		if err := os.RemoveAll(e.CgroupPath); err != nil {
			errs = append(errs, fmt.Sprintf("remove cgroup: %v", err))
		}
	}
	if e.ScratchDir != "" {
		if err := os.RemoveAll(e.ScratchDir); err != nil {
			errs = append(errs, fmt.Sprintf("remove scratch: %v", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("teardown %s: %s", e.ID, strings.Join(errs, "; "))
	}
	return nil
}

// TornDown reports whether teardown has run.
func (e *Environment) TornDown() bool {
	return e.tornDown.Load()
}

func validateFileName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid scratch file name: %q", name)
	}
	return nil
}
