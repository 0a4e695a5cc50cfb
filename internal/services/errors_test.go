package services_test

import (
	"errors"
	"strings"
	"testing"

	"curator/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExecution, "executor", "rename", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExecution) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"executor", "rename", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsToExecution(t *testing.T) {
	err := services.Wrap(nil, "scheduler", "dequeue", "no marker", nil)
	if !errors.Is(err, services.ErrExecution) {
		t.Fatalf("expected execution marker fallback, got %v", err)
	}
}

func TestHintByClassification(t *testing.T) {
	safetyErr := services.Wrap(services.ErrSafety, "policy", "categorize", "system path", nil)
	if hint := services.Hint(safetyErr); !strings.Contains(hint, "protected path") {
		t.Fatalf("unexpected safety hint %q", hint)
	}
	capErr := services.Wrap(services.ErrCapacity, "approval", "enqueue", "queue full", nil)
	if hint := services.Hint(capErr); !strings.Contains(hint, "capacity") {
		t.Fatalf("unexpected capacity hint %q", hint)
	}
	if hint := services.Hint(nil); hint != "" {
		t.Fatalf("expected empty hint for nil error, got %q", hint)
	}
	if hint := services.Hint(errors.New("unclassified")); hint != "" {
		t.Fatalf("expected empty hint for unmarked error, got %q", hint)
	}
}

func TestRecoverable(t *testing.T) {
	capErr := services.Wrap(services.ErrCapacity, "approval", "enqueue", "queue full", nil)
	if !services.Recoverable(capErr) {
		t.Fatal("capacity errors should be recoverable")
	}
	valErr := services.Wrap(services.ErrValidation, "executor", "validate", "missing source", nil)
	if services.Recoverable(valErr) {
		t.Fatal("validation errors should not be recoverable")
	}
	if services.Recoverable(nil) {
		t.Fatal("nil error should not be recoverable")
	}
}
