package errors_test

import (
	"fmt"
	"testing"

	pkgerrors "execbox/pkg/errors"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		code pkgerrors.ErrorCode
		want int
	}{
		{pkgerrors.Success, 200},
		{pkgerrors.InvalidParams, 400},
		{pkgerrors.UnsupportedLanguage, 400},
		{pkgerrors.RequestTooLarge, 413},
		{pkgerrors.QuotaExceeded, 429},
		{pkgerrors.Overloaded, 503},
		{pkgerrors.SchedulerStopped, 503},
		{pkgerrors.Timeout, 504},
		{pkgerrors.SandboxProvisionFailed, 500},
	}
	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Fatalf("code %d: expected status %d, got %d", tc.code, tc.want, got)
		}
	}
}

func TestGetCodeFromPlainError(t *testing.T) {
	if got := pkgerrors.GetCode(fmt.Errorf("boom")); got != pkgerrors.InternalServerError {
		t.Fatalf("expected InternalServerError, got %d", got)
	}
	if got := pkgerrors.GetCode(nil); got != pkgerrors.Success {
		t.Fatalf("expected Success for nil, got %d", got)
	}
}

func TestWrapPreservesUnderlyingError(t *testing.T) {
	base := fmt.Errorf("disk full")
	err := pkgerrors.Wrap(base, pkgerrors.SandboxProvisionFailed)
	if err.Unwrap() != base {
		t.Fatalf("expected wrapped error to unwrap to the original")
	}
	if pkgerrors.GetCode(err) != pkgerrors.SandboxProvisionFailed {
		t.Fatalf("expected SandboxProvisionFailed, got %d", pkgerrors.GetCode(err))
	}
}

func TestValidationErrorCarriesField(t *testing.T) {
	err := pkgerrors.ValidationError("callerId", "required")
	if pkgerrors.GetCode(err) != pkgerrors.ValidationFailed {
		t.Fatalf("expected ValidationFailed, got %d", pkgerrors.GetCode(err))
	}
	if err.Details["field"] != "callerId" {
		t.Fatalf("expected field detail, got %v", err.Details)
	}
}
