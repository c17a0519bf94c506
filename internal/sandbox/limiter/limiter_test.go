package limiter_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"execbox/internal/sandbox/limiter"
)

// fakeSource serves a fixed sequence of samples, repeating the last one.
type fakeSource struct {
	mu      sync.Mutex
	samples []limiter.Usage
	idx     int
}

func (f *fakeSource) Usage() limiter.Usage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.samples) == 0 {
		return limiter.Usage{}
	}
	u := f.samples[f.idx]
	if f.idx < len(f.samples)-1 {
		f.idx++
	}
	return u
}

type fakeTerminator struct {
	calls  atomic.Int64
	onKill func()
}

func (f *fakeTerminator) Terminate() error {
	f.calls.Add(1)
	if f.onKill != nil {
		f.onKill()
	}
	return nil
}

func TestWatchNoBreachOnCleanExit(t *testing.T) {
	src := &fakeSource{samples: []limiter.Usage{{CPUTimeMs: 10, PeakMemoryBytes: 1024}}}
	term := &fakeTerminator{}
	w := limiter.NewWatchdog(time.Millisecond)

	exited := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(exited)
	}()

	b := w.Watch(context.Background(), src, term, limiter.Limits{
		CPUTimeMs:   1000,
		MemoryBytes: 1 << 20,
	}, exited)
	if b != nil {
		t.Fatalf("expected no breach, got %+v", b)
	}
	if term.calls.Load() != 0 {
		t.Fatalf("expected no termination, got %d calls", term.calls.Load())
	}
}

func TestWatchTerminatesOnMemoryBreach(t *testing.T) {
	src := &fakeSource{samples: []limiter.Usage{{PeakMemoryBytes: 2048}}}
	exited := make(chan struct{})
	term := &fakeTerminator{onKill: func() { close(exited) }}
	w := limiter.NewWatchdog(time.Millisecond)

	b := w.Watch(context.Background(), src, term, limiter.Limits{MemoryBytes: 1024}, exited)
	if b == nil {
		t.Fatalf("expected a breach")
	}
	if b.Dimension != limiter.DimensionMemory {
		t.Fatalf("expected memory dimension, got %s", b.Dimension)
	}
	if b.Observed != 2048 || b.Limit != 1024 {
		t.Fatalf("expected observed=2048 limit=1024, got %+v", b)
	}
	if term.calls.Load() != 1 {
		t.Fatalf("expected exactly one termination, got %d", term.calls.Load())
	}
}

func TestWatchWallClockBreach(t *testing.T) {
	src := &fakeSource{}
	exited := make(chan struct{})
	term := &fakeTerminator{onKill: func() { close(exited) }}
	w := limiter.NewWatchdog(time.Millisecond)

	b := w.Watch(context.Background(), src, term, limiter.Limits{WallTimeMs: 5}, exited)
	if b == nil || b.Dimension != limiter.DimensionWallClock {
		t.Fatalf("expected wall clock breach, got %+v", b)
	}
}

func TestWatchFinalSampleBeatsCleanExit(t *testing.T) {
	// The process exits before the first tick, but its last sample already
	// crossed the output ceiling. The breach must win.
	src := &fakeSource{samples: []limiter.Usage{{OutputBytes: 4096}}}
	term := &fakeTerminator{}
	w := limiter.NewWatchdog(time.Hour)

	exited := make(chan struct{})
	close(exited)

	b := w.Watch(context.Background(), src, term, limiter.Limits{OutputBytes: 1024}, exited)
	if b == nil || b.Dimension != limiter.DimensionOutput {
		t.Fatalf("expected output breach from final sample, got %+v", b)
	}
}

func TestWatchContextCancellation(t *testing.T) {
	src := &fakeSource{}
	exited := make(chan struct{})
	term := &fakeTerminator{onKill: func() { close(exited) }}
	w := limiter.NewWatchdog(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := w.Watch(ctx, src, term, limiter.Limits{}, exited)
	if b == nil || b.Dimension != limiter.DimensionCancelled {
		t.Fatalf("expected cancelled breach, got %+v", b)
	}
	if term.calls.Load() != 1 {
		t.Fatalf("expected termination on cancellation, got %d calls", term.calls.Load())
	}
}

func TestWatchCancellationPrefersRealBreach(t *testing.T) {
	// When the final sample shows a genuine limit violation, it wins over
	// the cancellation classification.
	src := &fakeSource{samples: []limiter.Usage{{CPUTimeMs: 900}}}
	exited := make(chan struct{})
	term := &fakeTerminator{onKill: func() { close(exited) }}
	w := limiter.NewWatchdog(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := w.Watch(ctx, src, term, limiter.Limits{CPUTimeMs: 500}, exited)
	if b == nil || b.Dimension != limiter.DimensionCPU {
		t.Fatalf("expected cpu breach to win over cancellation, got %+v", b)
	}
}

func TestZeroLimitDisablesDimension(t *testing.T) {
	src := &fakeSource{samples: []limiter.Usage{{CPUTimeMs: 1 << 40, PeakMemoryBytes: 1 << 40, OutputBytes: 1 << 40}}}
	term := &fakeTerminator{}
	w := limiter.NewWatchdog(time.Millisecond)

	exited := make(chan struct{})
	go func() {
		time.Sleep(5 * time.Millisecond)
		close(exited)
	}()

	b := w.Watch(context.Background(), src, term, limiter.Limits{}, exited)
	if b != nil {
		t.Fatalf("expected disabled limits to never breach, got %+v", b)
	}
}
