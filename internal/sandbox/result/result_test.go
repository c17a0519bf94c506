package result_test

import (
	"testing"

	"execbox/internal/sandbox/limiter"
	"execbox/internal/sandbox/result"
)

func TestAssembleSuccess(t *testing.T) {
	res := result.Assemble(result.RawOutcome{
		ExitCode:   0,
		Stdout:     []byte("hello\n"),
		WallTimeMs: 12,
		CPUTimeMs:  8,
	}, nil)

	if res.Status != result.StatusSuccess {
		t.Fatalf("expected Success, got %s", res.Status)
	}
	if res.Stdout != "hello\n" {
		t.Fatalf("unexpected stdout %q", res.Stdout)
	}
	if res.ExitCode == nil || *res.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %v", res.ExitCode)
	}
	if res.LimitDimension != "" {
		t.Fatalf("expected no limit dimension, got %q", res.LimitDimension)
	}
}

func TestAssembleRuntimeError(t *testing.T) {
	res := result.Assemble(result.RawOutcome{ExitCode: 139, Stderr: []byte("segfault")}, nil)
	if res.Status != result.StatusRuntimeError {
		t.Fatalf("expected RuntimeError, got %s", res.Status)
	}
	if res.ExitCode == nil || *res.ExitCode != 139 {
		t.Fatalf("expected exit code 139, got %v", res.ExitCode)
	}
}

func TestAssembleBreachBeatsCleanExit(t *testing.T) {
	// A breach observed at exit time wins even when the process managed to
	// exit zero.
	res := result.Assemble(result.RawOutcome{ExitCode: 0}, &limiter.Breach{
		Dimension: limiter.DimensionCPU,
		Observed:  1500,
		Limit:     1000,
	})
	if res.Status != result.StatusTimeout {
		t.Fatalf("expected Timeout, got %s", res.Status)
	}
	if res.LimitDimension != "cpu" {
		t.Fatalf("expected cpu dimension, got %q", res.LimitDimension)
	}
}

func TestAssembleMemoryBreach(t *testing.T) {
	res := result.Assemble(result.RawOutcome{ForceKilled: true}, &limiter.Breach{
		Dimension: limiter.DimensionMemory,
	})
	if res.Status != result.StatusMemoryExceeded {
		t.Fatalf("expected MemoryExceeded, got %s", res.Status)
	}
	if res.ExitCode != nil {
		t.Fatalf("expected nil exit code after forced kill, got %d", *res.ExitCode)
	}
}

func TestAssembleOutputBreachKeepsPartialOutput(t *testing.T) {
	res := result.Assemble(result.RawOutcome{
		ForceKilled:     true,
		Stdout:          []byte("partial"),
		StdoutTruncated: true,
	}, &limiter.Breach{Dimension: limiter.DimensionOutput})
	if res.Status != result.StatusOutputTruncated {
		t.Fatalf("expected OutputTruncated, got %s", res.Status)
	}
	if res.Stdout != "partial" {
		t.Fatalf("expected partial output kept, got %q", res.Stdout)
	}
	if !res.StdoutTruncated {
		t.Fatalf("expected stdout truncation flag set")
	}
}

func TestAssembleCancellationSurfacesAsTimeout(t *testing.T) {
	res := result.Assemble(result.RawOutcome{ForceKilled: true}, &limiter.Breach{
		Dimension: limiter.DimensionCancelled,
	})
	if res.Status != result.StatusTimeout {
		t.Fatalf("expected Timeout, got %s", res.Status)
	}
	if res.LimitDimension != "cancelled" {
		t.Fatalf("expected cancelled dimension, got %q", res.LimitDimension)
	}
}

func TestAssembleOomKill(t *testing.T) {
	res := result.Assemble(result.RawOutcome{ForceKilled: true, OomKilled: true}, nil)
	if res.Status != result.StatusMemoryExceeded {
		t.Fatalf("expected MemoryExceeded from oom kill, got %s", res.Status)
	}
	if res.LimitDimension != "memory" {
		t.Fatalf("expected memory dimension, got %q", res.LimitDimension)
	}
}

func TestAssembleForceKillWithoutBreachIsTimeout(t *testing.T) {
	res := result.Assemble(result.RawOutcome{ForceKilled: true}, nil)
	if res.Status != result.StatusTimeout {
		t.Fatalf("expected Timeout, got %s", res.Status)
	}
	if res.ExitCode != nil {
		t.Fatalf("expected nil exit code, got %d", *res.ExitCode)
	}
}

func TestAssembleReadTimeTruncation(t *testing.T) {
	res := result.Assemble(result.RawOutcome{ExitCode: 0, StderrTruncated: true}, nil)
	if res.Status != result.StatusOutputTruncated {
		t.Fatalf("expected OutputTruncated from read-time truncation, got %s", res.Status)
	}
}

func TestCompileFailureCarriesDiagnostics(t *testing.T) {
	res := result.CompileFailure(result.RawOutcome{
		ExitCode: 1,
		Stderr:   []byte("main.cpp:3: error: expected ';'"),
	})
	if res.Status != result.StatusCompileError {
		t.Fatalf("expected CompileError, got %s", res.Status)
	}
	if res.Stderr == "" {
		t.Fatalf("expected compiler diagnostics in stderr")
	}
	if res.ExitCode == nil || *res.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %v", res.ExitCode)
	}
}

func TestInternalFailureHidesDetails(t *testing.T) {
	res := result.InternalFailure()
	if res.Status != result.StatusInternalError {
		t.Fatalf("expected InternalError, got %s", res.Status)
	}
	if res.Stdout != "" || res.Stderr != "" {
		t.Fatalf("expected no output details, got stdout=%q stderr=%q", res.Stdout, res.Stderr)
	}
}
