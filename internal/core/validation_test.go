package core

import (
	"errors"
	"strings"
	"testing"
)

func TestValidation(t *testing.T) {
	var v Validation
	if !v.Passed() || v.Status() != "passed" {
		t.Error("empty validation should pass")
	}
	if err := v.Err("merge"); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}

	v.Add("row_count", true, "target has %d rows", 10)
	v.Add("exact_duplicates", false, "%d groups", 2)
	v.Add("window_pairs", false, "%d pairs", 1)

	if v.Passed() || v.Status() != "failed" {
		t.Error("validation with failures should fail")
	}
	if n := len(v.Failed()); n != 2 {
		t.Errorf("Failed() = %d checks, want 2", n)
	}
	if v.Checks[0].Detail != "target has 10 rows" {
		t.Errorf("Detail = %q", v.Checks[0].Detail)
	}

	err := v.Err("dedup")
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Err() = %T, want *ValidationError", err)
	}
	if valErr.Job != "dedup" || len(valErr.Failed) != 2 {
		t.Errorf("ValidationError = %+v", valErr)
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "dedup validation failed") ||
		!strings.Contains(msg, "exact_duplicates: 2 groups") ||
		!strings.Contains(msg, "window_pairs: 1 pairs") {
		t.Errorf("Error() = %q", msg)
	}
}

func TestSettle(t *testing.T) {
	var failing Validation
	failing.Add("row_count", false, "mismatch")

	strict := &Service{}
	if err := strict.settle(discardLogger(), "merge", failing); err == nil {
		t.Error("strict mode should return an error")
	}

	advisory := &Service{advisory: true}
	if err := advisory.settle(discardLogger(), "merge", failing); err != nil {
		t.Errorf("advisory mode returned %v, want nil", err)
	}

	var passing Validation
	passing.Add("row_count", true, "ok")
	if err := strict.settle(discardLogger(), "merge", passing); err != nil {
		t.Errorf("passing validation returned %v", err)
	}
}
