package sandbox_test

import (
	"context"
	"strings"
	"testing"

	"execbox/internal/sandbox"
	"execbox/internal/sandbox/result"
	"execbox/internal/sandbox/runtime"
	"execbox/internal/sandbox/scheduler"
	"execbox/internal/sandbox/spec"
	pkgerrors "execbox/pkg/errors"
)

type instantExecutor struct {
	res result.ExecutionResult
}

func (e instantExecutor) Execute(ctx context.Context, jobID string, req spec.ExecutionRequest) result.ExecutionResult {
	return e.res
}

func newTestService(t *testing.T, limits sandbox.AdmissionLimits) sandbox.Service {
	t.Helper()
	reg, err := runtime.NewRegistry([]runtime.LanguageSpec{{
		ID:         "python3",
		Name:       "Python",
		Version:    "3.12",
		SourceFile: "main.py",
		RunCmdTpl:  "/usr/bin/python3 {source}",
	}})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	sched := scheduler.New(scheduler.Config{MaxConcurrentJobs: 2, MaxQueueLength: 4},
		instantExecutor{res: result.ExecutionResult{Status: result.StatusSuccess}})
	sched.Start()
	t.Cleanup(func() { _ = sched.Stop(context.Background()) })
	return sandbox.NewService(reg, sched, limits)
}

func validRequest() spec.ExecutionRequest {
	return spec.ExecutionRequest{
		Language:   "python3",
		SourceCode: "print(1)",
		CallerID:   "alice",
	}
}

func TestSubmitSuccess(t *testing.T) {
	svc := newTestService(t, sandbox.AdmissionLimits{})
	res, err := svc.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Status != result.StatusSuccess {
		t.Fatalf("expected Success, got %s", res.Status)
	}
}

func TestSubmitRequiresCallerID(t *testing.T) {
	svc := newTestService(t, sandbox.AdmissionLimits{})
	req := validRequest()
	req.CallerID = ""
	_, err := svc.Submit(context.Background(), req)
	if pkgerrors.GetCode(err) != pkgerrors.ValidationFailed {
		t.Fatalf("expected ValidationFailed, got %v", err)
	}
}

func TestSubmitRequiresSourceCode(t *testing.T) {
	svc := newTestService(t, sandbox.AdmissionLimits{})
	req := validRequest()
	req.SourceCode = ""
	_, err := svc.Submit(context.Background(), req)
	if pkgerrors.GetCode(err) != pkgerrors.ValidationFailed {
		t.Fatalf("expected ValidationFailed, got %v", err)
	}
}

func TestSubmitSourceTooLarge(t *testing.T) {
	svc := newTestService(t, sandbox.AdmissionLimits{MaxSourceBytes: 16})
	req := validRequest()
	req.SourceCode = strings.Repeat("a", 17)
	_, err := svc.Submit(context.Background(), req)
	if pkgerrors.GetCode(err) != pkgerrors.RequestTooLarge {
		t.Fatalf("expected RequestTooLarge, got %v", err)
	}
}

func TestSubmitStdinTooLarge(t *testing.T) {
	svc := newTestService(t, sandbox.AdmissionLimits{MaxStdinBytes: 16})
	req := validRequest()
	req.Stdin = strings.Repeat("a", 17)
	_, err := svc.Submit(context.Background(), req)
	if pkgerrors.GetCode(err) != pkgerrors.RequestTooLarge {
		t.Fatalf("expected RequestTooLarge, got %v", err)
	}
}

func TestSubmitUnsupportedLanguage(t *testing.T) {
	svc := newTestService(t, sandbox.AdmissionLimits{})
	req := validRequest()
	req.Language = "fortran"
	_, err := svc.Submit(context.Background(), req)
	if pkgerrors.GetCode(err) != pkgerrors.UnsupportedLanguage {
		t.Fatalf("expected UnsupportedLanguage, got %v", err)
	}
}

func TestLanguagesListed(t *testing.T) {
	svc := newTestService(t, sandbox.AdmissionLimits{})
	langs := svc.Languages()
	if len(langs) != 1 || langs[0].ID != "python3" {
		t.Fatalf("unexpected languages %+v", langs)
	}
}
