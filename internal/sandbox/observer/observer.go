// Package observer defines metrics hooks for sandbox execution.
package observer

import (
	"context"

	"execbox/internal/sandbox/result"
)

// MetricsRecorder records per-execution metrics.
type MetricsRecorder interface {
	ObserveExecution(ctx context.Context, language string, status result.Status, wallTimeMs int64, peakMemoryBytes int64)
}

// NoopMetricsRecorder discards all observations.
type NoopMetricsRecorder struct{}

func (NoopMetricsRecorder) ObserveExecution(ctx context.Context, language string, status result.Status, wallTimeMs int64, peakMemoryBytes int64) {
}
