// Package sandbox is the public entrypoint used by callers to execute
// user-submitted code under isolation.
package sandbox

import (
	"context"

	"execbox/internal/sandbox/result"
	"execbox/internal/sandbox/runtime"
	"execbox/internal/sandbox/scheduler"
	"execbox/internal/sandbox/spec"
)

// Service exposes the single logical operation of the sandbox: submit a
// request, get back either a structured result or an admission error.
type Service interface {
	// Submit validates and admits one execution request, blocking until
	// its result is available or ctx is cancelled. Rejections surface as
	// errors carrying an admission code (UnsupportedLanguage,
	// RequestTooLarge, Overloaded, QuotaExceeded); everything that
	// happened to the code itself is described by the result's status.
	Submit(ctx context.Context, req spec.ExecutionRequest) (result.ExecutionResult, error)

	// Languages lists the registered runtimes.
	Languages() []runtime.LanguageSpec

	// Stats reports current scheduler load.
	Stats() scheduler.Stats
}
