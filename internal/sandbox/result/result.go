// Package result defines execution results and the outcome assembly rules.
package result

import "execbox/internal/sandbox/limiter"

// Status classifies the terminal outcome of one execution job.
type Status string

const (
	StatusSuccess         Status = "Success"
	StatusRuntimeError    Status = "RuntimeError"
	StatusCompileError    Status = "CompileError"
	StatusTimeout         Status = "Timeout"
	StatusMemoryExceeded  Status = "MemoryExceeded"
	StatusOutputTruncated Status = "OutputTruncated"
	StatusInternalError   Status = "InternalError"
)

// ExecutionResult is the single structured result returned per job.
// It is immutable after assembly.
type ExecutionResult struct {
	Status Status `json:"status"`

	Stdout          string `json:"stdout"`
	Stderr          string `json:"stderr"`
	StdoutTruncated bool   `json:"stdoutTruncated"`
	StderrTruncated bool   `json:"stderrTruncated"`

	// ExitCode is nil when the process was force-killed and never
	// produced an exit status of its own.
	ExitCode *int `json:"exitCode"`

	WallTimeMs      int64 `json:"wallTimeMs"`
	CPUTimeMs       int64 `json:"cpuTimeMs"`
	PeakMemoryBytes int64 `json:"peakMemoryBytes"`

	// LimitDimension records which watchdog fired for limit-class
	// statuses: cpu, wall_clock, memory, output or cancelled.
	LimitDimension string `json:"limitDimension,omitempty"`
}

// RawOutcome is the unprocessed data collected from one finished process.
type RawOutcome struct {
	ExitCode        int
	ForceKilled     bool
	OomKilled       bool
	Stdout          []byte
	Stderr          []byte
	StdoutTruncated bool
	StderrTruncated bool
	WallTimeMs      int64
	CPUTimeMs       int64
	PeakMemoryBytes int64
}

// Assemble maps a raw process outcome and the limiter signal to the final
// result. It is a pure function: limiter-detected breaches always take
// precedence over a clean exit code, then an OOM kill, then a forced kill,
// then a nonzero exit.
func Assemble(out RawOutcome, breach *limiter.Breach) ExecutionResult {
	res := ExecutionResult{
		Stdout:          string(out.Stdout),
		Stderr:          string(out.Stderr),
		StdoutTruncated: out.StdoutTruncated,
		StderrTruncated: out.StderrTruncated,
		WallTimeMs:      out.WallTimeMs,
		CPUTimeMs:       out.CPUTimeMs,
		PeakMemoryBytes: out.PeakMemoryBytes,
	}

	if breach != nil {
		res.LimitDimension = string(breach.Dimension)
		switch breach.Dimension {
		case limiter.DimensionMemory:
			res.Status = StatusMemoryExceeded
		case limiter.DimensionOutput:
			// Partial output collected so far is kept, not discarded.
			res.Status = StatusOutputTruncated
		default:
			// CPU, wall clock and cancellation all surface as Timeout;
			// the dimension tells them apart.
			res.Status = StatusTimeout
		}
		if !out.ForceKilled {
			code := out.ExitCode
			res.ExitCode = &code
		}
		return res
	}

	if out.OomKilled {
		res.Status = StatusMemoryExceeded
		res.LimitDimension = string(limiter.DimensionMemory)
		return res
	}

	if out.ForceKilled {
		res.Status = StatusTimeout
		res.LimitDimension = string(limiter.DimensionWallClock)
		return res
	}

	code := out.ExitCode
	res.ExitCode = &code
	if out.ExitCode != 0 {
		res.Status = StatusRuntimeError
		return res
	}

	// Output ceilings are also re-checked at read time: a stream that had
	// to be cut off counts as a breach even if the watchdog never fired.
	if out.StdoutTruncated || out.StderrTruncated {
		res.Status = StatusOutputTruncated
		res.LimitDimension = string(limiter.DimensionOutput)
		return res
	}

	res.Status = StatusSuccess
	return res
}

// InternalFailure builds the generic result for failures not attributable
// to the submitted code. Host-internal details stay in the logs.
func InternalFailure() ExecutionResult {
	return ExecutionResult{Status: StatusInternalError}
}

// CompileFailure builds the result for a failed compile step, carrying the
// compiler diagnostics as stderr.
func CompileFailure(out RawOutcome) ExecutionResult {
	code := out.ExitCode
	return ExecutionResult{
		Status:          StatusCompileError,
		Stderr:          string(out.Stderr),
		StderrTruncated: out.StderrTruncated,
		ExitCode:        &code,
		WallTimeMs:      out.WallTimeMs,
		CPUTimeMs:       out.CPUTimeMs,
		PeakMemoryBytes: out.PeakMemoryBytes,
	}
}
