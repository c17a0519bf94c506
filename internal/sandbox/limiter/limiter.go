// Package limiter enforces resource limits on a running sandboxed process.
//
// Limits are checked on a fixed polling interval rather than relying on
// OS-level hard limits everywhere: CPU time is only available cumulatively,
// and the cgroup memory ceiling reports a kill after the fact. A final
// sample is taken when the process exits so a breach that lands
// microseconds before a clean exit still wins over the exit status.
package limiter

import (
	"context"
	"time"
)

// DefaultPollInterval is used when the watchdog is built with no interval.
const DefaultPollInterval = 50 * time.Millisecond

// Dimension identifies which resource watchdog fired.
type Dimension string

const (
	DimensionCPU       Dimension = "cpu"
	DimensionWallClock Dimension = "wall_clock"
	DimensionMemory    Dimension = "memory"
	DimensionOutput    Dimension = "output"
	DimensionCancelled Dimension = "cancelled"
)

// Usage is one sample of a process's cumulative resource consumption.
// Dimensions a platform cannot sample are reported as zero and simply
// never breach.
type Usage struct {
	CPUTimeMs       int64
	PeakMemoryBytes int64
	OutputBytes     int64
}

// Limits are the ceilings the watchdog enforces. Zero disables a dimension.
type Limits struct {
	CPUTimeMs   int64
	WallTimeMs  int64
	MemoryBytes int64
	OutputBytes int64
}

// Breach records the first limit violation observed for one process.
type Breach struct {
	Dimension Dimension
	Observed  int64
	Limit     int64
}

// UsageSource samples cumulative resource usage of a running process.
type UsageSource interface {
	Usage() Usage
}

// Terminator force-kills the entire process tree of one environment.
// Implementations must be idempotent.
type Terminator interface {
	Terminate() error
}

// Watchdog polls one process against its limits.
type Watchdog struct {
	interval time.Duration
}

// NewWatchdog creates a watchdog with the given polling interval.
func NewWatchdog(interval time.Duration) *Watchdog {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watchdog{interval: interval}
}

// Watch polls src until exited is closed, terminating the target on the
// first breach. It returns the breach, or nil when the process stayed
// within its limits. Context cancellation also terminates the target and
// is reported as DimensionCancelled.
//
// Watch always drains to exited before returning, so the caller may rely
// on the process being gone once it has both the wait status and the
// breach.
func (w *Watchdog) Watch(ctx context.Context, src UsageSource, term Terminator, limits Limits, exited <-chan struct{}) *Breach {
	start := time.Now()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-exited:
			// Exit race: a breach already accumulated beats the exit status.
			return exceeded(src.Usage(), limits, time.Since(start))
		case <-ctx.Done():
			_ = term.Terminate()
			<-exited
			if b := exceeded(src.Usage(), limits, time.Since(start)); b != nil {
				return b
			}
			return &Breach{Dimension: DimensionCancelled}
		case <-ticker.C:
			if b := exceeded(src.Usage(), limits, time.Since(start)); b != nil {
				_ = term.Terminate()
				<-exited
				return b
			}
		}
	}
}

func exceeded(u Usage, limits Limits, elapsed time.Duration) *Breach {
	if limits.MemoryBytes > 0 && u.PeakMemoryBytes > limits.MemoryBytes {
		return &Breach{Dimension: DimensionMemory, Observed: u.PeakMemoryBytes, Limit: limits.MemoryBytes}
	}
	if limits.OutputBytes > 0 && u.OutputBytes > limits.OutputBytes {
		return &Breach{Dimension: DimensionOutput, Observed: u.OutputBytes, Limit: limits.OutputBytes}
	}
	if limits.CPUTimeMs > 0 && u.CPUTimeMs > limits.CPUTimeMs {
		return &Breach{Dimension: DimensionCPU, Observed: u.CPUTimeMs, Limit: limits.CPUTimeMs}
	}
	if limits.WallTimeMs > 0 && elapsed.Milliseconds() > limits.WallTimeMs {
		return &Breach{Dimension: DimensionWallClock, Observed: elapsed.Milliseconds(), Limit: limits.WallTimeMs}
	}
	return nil
}
