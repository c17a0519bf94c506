//go:build linux

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"execbox/internal/sandbox/limiter"
	"execbox/internal/sandbox/spec"
	"execbox/pkg/utils/logger"

	"go.uber.org/zap"
)

// sandboxWorkDir is where the scratch directory appears inside the mount
// namespace.
const sandboxWorkDir = "/box"

type linuxEngine struct {
	cfg Config
}

// NewEngine creates a Linux sandbox engine.
func NewEngine(cfg Config) (Engine, error) {
	cfg = cfg.withDefaults()
	if cfg.WorkRoot == "" {
		return nil, fmt.Errorf("work root is required")
	}
	if cfg.EnableCgroup && cfg.CgroupRoot == "" {
		return nil, fmt.Errorf("cgroup root is required when cgroups are enabled")
	}
	return &linuxEngine{cfg: cfg}, nil
}

func (e *linuxEngine) Provision(ctx context.Context, jobID string, limits spec.ResourceLimit) (*Environment, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job id is required")
	}
	scratchDir := filepath.Join(e.cfg.WorkRoot, jobID)
	if err := os.MkdirAll(scratchDir, 0700); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	cgroupPath := ""
	if e.cfg.EnableCgroup {
		var err error
		cgroupPath, err = createJobCgroup(e.cfg.CgroupRoot, jobID)
		if err != nil {
			_ = os.RemoveAll(scratchDir)
			return nil, fmt.Errorf("create cgroup: %w", err)
		}
		if err := applyCgroupLimits(cgroupPath, limits); err != nil {
			_ = os.RemoveAll(cgroupPath)
			_ = os.RemoveAll(scratchDir)
			return nil, fmt.Errorf("apply cgroup limits: %w", err)
		}
	}

	logger.Debug(ctx, "environment provisioned",
		zap.String("job_id", jobID),
		zap.String("scratch", scratchDir),
		zap.String("cgroup", cgroupPath))
	return NewEnvironment(jobID, scratchDir, cgroupPath), nil
}

func (e *linuxEngine) Start(ctx context.Context, env *Environment, runSpec spec.RunSpec) (Process, error) {
	if env == nil {
		return nil, fmt.Errorf("environment is required")
	}
	if env.TornDown() || env.Terminated() {
		return nil, fmt.Errorf("environment %s is no longer usable", env.ID)
	}
	if len(runSpec.Cmd) == 0 {
		return nil, fmt.Errorf("command is required")
	}

	mapped := e.mapRunSpec(env, runSpec)
	initReq := initRequest{
		RunSpec: mapped,
		Isolation: isolationProfile{
			RootFS:         e.cfg.RootFS,
			SeccompProfile: e.cfg.SeccompProfile,
			DisableNetwork: true,
		},
		ScratchLimitBytes: e.cfg.ScratchLimitBytes,
		EnableSeccomp:     e.cfg.EnableSeccomp,
		EnableNs:          e.cfg.EnableNamespaces,
	}

	stdinPipe, err := jsonToPipe(initReq)
	if err != nil {
		return nil, fmt.Errorf("encode init request: %w", err)
	}

	cmd := exec.Command(e.cfg.HelperPath)
	cmd.SysProcAttr = buildSysProcAttr(e.cfg.EnableNamespaces)
	cmd.Stdin = stdinPipe

	var helperStderr bytes.Buffer
	cmd.Stderr = &helperStderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		_ = stdinPipe.Close()
		return nil, fmt.Errorf("start helper: %w", err)
	}
	env.SetPgid(cmd.Process.Pid)

	if env.CgroupPath != "" {
		if err := addProcessToCgroup(env.CgroupPath, cmd.Process.Pid); err != nil {
			logger.Warn(ctx, "add process to cgroup failed",
				zap.String("cgroup", env.CgroupPath), zap.Error(err))
		}
	}

	return &linuxProcess{
		cmd:          cmd,
		env:          env,
		start:        start,
		stdinPipe:    stdinPipe,
		helperStderr: &helperStderr,
		stdoutHost:   hostPathOf(env, runSpec.StdoutPath),
		stderrHost:   hostPathOf(env, runSpec.StderrPath),
	}, nil
}

// mapRunSpec turns scratch-relative file names into the paths the helper
// sees and mounts the scratch directory as the only writable location.
func (e *linuxEngine) mapRunSpec(env *Environment, runSpec spec.RunSpec) spec.RunSpec {
	if e.cfg.EnableNamespaces {
		runSpec.WorkDir = sandboxWorkDir
		runSpec.StdinPath = sandboxPathOf(runSpec.StdinPath)
		runSpec.StdoutPath = sandboxPathOf(runSpec.StdoutPath)
		runSpec.StderrPath = sandboxPathOf(runSpec.StderrPath)
		runSpec.BindMounts = append(runSpec.BindMounts, spec.MountSpec{
			Source:   env.ScratchDir,
			Target:   sandboxWorkDir,
			ReadOnly: false,
		})
		return runSpec
	}
	runSpec.WorkDir = env.ScratchDir
	runSpec.StdinPath = hostPathOf(env, runSpec.StdinPath)
	runSpec.StdoutPath = hostPathOf(env, runSpec.StdoutPath)
	runSpec.StderrPath = hostPathOf(env, runSpec.StderrPath)
	runSpec.BindMounts = nil
	return runSpec
}

func sandboxPathOf(name string) string {
	if name == "" {
		return ""
	}
	return filepath.Join(sandboxWorkDir, name)
}

func hostPathOf(env *Environment, name string) string {
	if name == "" {
		return ""
	}
	return env.HostPath(name)
}

type linuxProcess struct {
	cmd          *exec.Cmd
	env          *Environment
	start        time.Time
	stdinPipe    io.ReadCloser
	helperStderr *bytes.Buffer
	stdoutHost   string
	stderrHost   string
}

func (p *linuxProcess) Usage() limiter.Usage {
	var peak int64
	if p.env.CgroupPath != "" {
		if val, err := readCgroupInt(p.env.CgroupPath, "memory.peak"); err == nil {
			peak = val
		}
	}
	return limiter.Usage{
		CPUTimeMs:       cpuUsageMs(p.env.CgroupPath),
		PeakMemoryBytes: peak,
		OutputBytes:     fileSize(p.stdoutHost) + fileSize(p.stderrHost),
	}
}

func (p *linuxProcess) Wait() WaitStatus {
	waitErr := p.cmd.Wait()
	_ = p.stdinPipe.Close()
	state := p.cmd.ProcessState

	ws := WaitStatus{
		ExitCode:        exitCodeOf(waitErr, state),
		ForceKilled:     p.env.Terminated() || signalKilled(state),
		OomKilled:       wasOomKilled(p.env.CgroupPath),
		WallTimeMs:      time.Since(p.start).Milliseconds(),
		CPUTimeMs:       cpuUsageMs(p.env.CgroupPath),
		PeakMemoryBytes: memoryPeakBytes(p.env.CgroupPath, state),
	}
	if ws.CPUTimeMs == 0 && state != nil {
		ws.CPUTimeMs = (state.UserTime() + state.SystemTime()).Milliseconds()
	}

	if waitErr != nil && p.helperStderr.Len() > 0 && !ws.ForceKilled {
		logger.Warn(context.Background(), "sandbox helper failed",
			zap.String("job_id", p.env.ID),
			zap.String("stderr", p.helperStderr.String()))
	}
	return ws
}

func exitCodeOf(err error, state *os.ProcessState) int {
	if state != nil {
		return state.ExitCode()
	}
	if err == nil {
		return 0
	}
	return -1
}

func signalKilled(state *os.ProcessState) bool {
	return state != nil && !state.Exited()
}

func fileSize(path string) int64 {
	if path == "" {
		return 0
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func jsonToPipe(req initRequest) (io.ReadCloser, error) {
	reader, writer := io.Pipe()
	go func() {
		enc := json.NewEncoder(writer)
		err := enc.Encode(req)
		_ = writer.CloseWithError(err)
	}()
	return reader, nil
}

func buildSysProcAttr(enableNamespaces bool) *syscall.SysProcAttr {
	attr := &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
	if !enableNamespaces {
		return attr
	}

	// Fresh namespaces per job; NEWNET is unconditional so the
	// environment never has connectivity in either direction.
	attr.Cloneflags = uintptr(syscall.CLONE_NEWNS |
		syscall.CLONE_NEWPID |
		syscall.CLONE_NEWUTS |
		syscall.CLONE_NEWIPC |
		syscall.CLONE_NEWNET |
		syscall.CLONE_NEWUSER)
	attr.GidMappingsEnableSetgroups = false
	attr.UidMappings = []syscall.SysProcIDMap{{
		ContainerID: 0,
		HostID:      os.Getuid(),
		Size:        1,
	}}
	attr.GidMappings = []syscall.SysProcIDMap{{
		ContainerID: 0,
		HostID:      os.Getgid(),
		Size:        1,
	}}
	return attr
}
