// Package spec defines the execution specification and resource limits.
package spec

// ExecutionRequest is one caller-submitted execution job.
// It is immutable after admission.
type ExecutionRequest struct {
	// Language must match a registered runtime identifier.
	Language string
	// SourceCode is the program text, size-bounded at admission.
	SourceCode string
	// Stdin is optional input fed to the program, size-bounded at admission.
	Stdin string
	// CallerID is an opaque identifier used for quota accounting.
	CallerID string
}

// ResourceLimit describes hard limits enforced on one sandboxed process.
type ResourceLimit struct {
	CPUTimeMs   int64 `yaml:"cpuTimeLimitMs"`
	WallTimeMs  int64 `yaml:"wallClockTimeoutMs"`
	MemoryBytes int64 `yaml:"memoryLimitBytes"`
	OutputBytes int64 `yaml:"outputByteLimit"`
	StackBytes  int64 `yaml:"stackLimitBytes"`
	PIDs        int64 `yaml:"maxPids"`
}

// Merge fills zero fields from defaults and returns the effective limits.
func (l ResourceLimit) Merge(defaults ResourceLimit) ResourceLimit {
	if l.CPUTimeMs <= 0 {
		l.CPUTimeMs = defaults.CPUTimeMs
	}
	if l.WallTimeMs <= 0 {
		l.WallTimeMs = defaults.WallTimeMs
	}
	if l.MemoryBytes <= 0 {
		l.MemoryBytes = defaults.MemoryBytes
	}
	if l.OutputBytes <= 0 {
		l.OutputBytes = defaults.OutputBytes
	}
	if l.StackBytes <= 0 {
		l.StackBytes = defaults.StackBytes
	}
	if l.PIDs <= 0 {
		l.PIDs = defaults.PIDs
	}
	return l
}

// MountSpec describes a bind mount inside the sandbox.
type MountSpec struct {
	Source   string
	Target   string
	ReadOnly bool
}

// RunSpec is the unified specification for one sandboxed command,
// either a compile step or the execution step.
type RunSpec struct {
	WorkDir    string
	Cmd        []string
	Env        []string
	StdinPath  string
	StdoutPath string
	StderrPath string
	BindMounts []MountSpec
	Limits     ResourceLimit
}
