package sandbox

import (
	"context"

	"execbox/internal/sandbox/result"
	"execbox/internal/sandbox/runtime"
	"execbox/internal/sandbox/scheduler"
	"execbox/internal/sandbox/spec"
	appErr "execbox/pkg/errors"
)

const (
	defaultMaxSourceBytes = 64 * 1024
	defaultMaxStdinBytes  = 64 * 1024
)

// AdmissionLimits bounds request payload sizes, checked before scheduling.
type AdmissionLimits struct {
	MaxSourceBytes int `yaml:"maxSourceBytes"`
	MaxStdinBytes  int `yaml:"maxStdinBytes"`
}

func (l AdmissionLimits) withDefaults() AdmissionLimits {
	if l.MaxSourceBytes <= 0 {
		l.MaxSourceBytes = defaultMaxSourceBytes
	}
	if l.MaxStdinBytes <= 0 {
		l.MaxStdinBytes = defaultMaxStdinBytes
	}
	return l
}

type service struct {
	registry *runtime.Registry
	sched    *scheduler.Scheduler
	limits   AdmissionLimits
}

// NewService wires the validated admission path in front of the scheduler.
func NewService(registry *runtime.Registry, sched *scheduler.Scheduler, limits AdmissionLimits) Service {
	return &service{
		registry: registry,
		sched:    sched,
		limits:   limits.withDefaults(),
	}
}

func (s *service) Submit(ctx context.Context, req spec.ExecutionRequest) (result.ExecutionResult, error) {
	if req.CallerID == "" {
		return result.ExecutionResult{}, appErr.ValidationError("callerId", "required")
	}
	if req.SourceCode == "" {
		return result.ExecutionResult{}, appErr.ValidationError("sourceCode", "required")
	}
	if len(req.SourceCode) > s.limits.MaxSourceBytes {
		return result.ExecutionResult{}, appErr.Newf(appErr.RequestTooLarge,
			"source code exceeds %d bytes", s.limits.MaxSourceBytes)
	}
	if len(req.Stdin) > s.limits.MaxStdinBytes {
		return result.ExecutionResult{}, appErr.Newf(appErr.RequestTooLarge,
			"stdin exceeds %d bytes", s.limits.MaxStdinBytes)
	}
	if _, err := s.registry.Resolve(req.Language); err != nil {
		return result.ExecutionResult{}, err
	}
	return s.sched.Submit(ctx, req)
}

func (s *service) Languages() []runtime.LanguageSpec {
	return s.registry.Languages()
}

func (s *service) Stats() scheduler.Stats {
	return s.sched.Stats()
}
