package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestWrapPreservesCauseAndCode(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeLedgerFailure, cause, "dial ledger node")

	if CodeOf(err) != CodeLedgerFailure {
		t.Fatalf("code = %s", CodeOf(err))
	}
	if !stdErrors.Is(err, cause) {
		t.Fatal("cause lost in wrapping")
	}

	// Codes survive further fmt wrapping.
	outer := fmt.Errorf("startup: %w", err)
	if CodeOf(outer) != CodeLedgerFailure {
		t.Fatalf("code lost through fmt wrap: %s", CodeOf(outer))
	}
}

func TestCodeDefaultsAndOverrides(t *testing.T) {
	plain := New(CodeStorageFailure, "")
	if plain.Message() != "storage failure" {
		t.Fatalf("default message not applied: %q", plain.Message())
	}
	if !plain.Retryable() || !plain.ShouldAlert() {
		t.Fatal("storage failures default to retryable and alerting")
	}

	quiet := New(CodeStorageFailure, "quiet", WithAlert(false), WithSeverity(SeverityInfo))
	if quiet.ShouldAlert() {
		t.Fatal("alert override ignored")
	}
	if quiet.Severity() != SeverityInfo {
		t.Fatalf("severity override ignored: %s", quiet.Severity())
	}
}

func TestIsMatchesByCode(t *testing.T) {
	a := New(CodeNotFound, "account not found")
	b := New(CodeNotFound, "different message")
	if !stdErrors.Is(a, b) {
		t.Fatal("errors with the same code should match")
	}
	if stdErrors.Is(a, New(CodeConflict, "")) {
		t.Fatal("different codes must not match")
	}
}

func TestUnregisteredCodeFallsBackToUnknown(t *testing.T) {
	attr := AttributesOf(Code("NO_SUCH_CODE"))
	if attr.Message != registry[CodeUnknown].Message {
		t.Fatalf("expected unknown attributes, got %+v", attr)
	}
	if CodeOf(stdErrors.New("plain")) != CodeUnknown {
		t.Fatal("plain errors should map to the unknown code")
	}
}

func TestRegisterAddsCode(t *testing.T) {
	code := Code("TEST_ONLY")
	Register(code, Attributes{Message: "test", Severity: SeverityWarning, Retryable: true})
	attr := AttributesOf(code)
	if attr.Message != "test" || !attr.Retryable {
		t.Fatalf("registered attributes not applied: %+v", attr)
	}
	if !RetryableError(New(code, "")) {
		t.Fatal("retryability should follow the registered attributes")
	}
}
