// Package engine implements the isolation boundary: it provisions one
// disposable environment per job and starts sandboxed processes inside it.
package engine

import (
	"context"

	"execbox/internal/sandbox/limiter"
	"execbox/internal/sandbox/spec"
)

// Engine provisions isolated environments and runs commands in them.
type Engine interface {
	// Provision creates the disposable environment for exactly one job:
	// an exclusively owned scratch directory and, when enabled, a cgroup
	// carrying the job's memory and pid ceilings.
	Provision(ctx context.Context, jobID string, limits spec.ResourceLimit) (*Environment, error)

	// Start launches one command inside the environment. File paths in
	// the RunSpec are names relative to the scratch directory; the engine
	// maps them to the in-sandbox view.
	Start(ctx context.Context, env *Environment, runSpec spec.RunSpec) (Process, error)
}

// Process is one running sandboxed command.
type Process interface {
	limiter.UsageSource

	// Wait blocks until the process tree's top-level process exits and
	// returns the collected raw status.
	Wait() WaitStatus
}

// WaitStatus is the raw status of a finished sandboxed process.
type WaitStatus struct {
	ExitCode        int
	ForceKilled     bool
	OomKilled       bool
	WallTimeMs      int64
	CPUTimeMs       int64
	PeakMemoryBytes int64
}
