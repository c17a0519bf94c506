//go:build !linux

package engine

import (
	"context"
	"fmt"

	"execbox/internal/sandbox/spec"
)

type stubEngine struct{}

// NewEngine returns a stub on platforms without namespace and cgroup
// support; every provisioning attempt fails.
func NewEngine(cfg Config) (Engine, error) {
	return &stubEngine{}, nil
}

func (s *stubEngine) Provision(ctx context.Context, jobID string, limits spec.ResourceLimit) (*Environment, error) {
	return nil, fmt.Errorf("sandbox engine is only supported on linux")
}

func (s *stubEngine) Start(ctx context.Context, env *Environment, runSpec spec.RunSpec) (Process, error) {
	return nil, fmt.Errorf("sandbox engine is only supported on linux")
}
