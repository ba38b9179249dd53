package core

// validation.go holds the typed outcome of post-job checks.
//
// Every job records its checks in a Validation. Whether a failed check stops
// the job is decided by the Service: strict mode turns it into a
// *ValidationError (and rolls back the job's transaction); advisory mode
// logs a warning and lets the job complete.

import (
	"fmt"
	"strings"
)

// Check is one named assertion about a job's output.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Validation collects the checks run by a job.
type Validation struct {
	Checks []Check `json:"checks"`
}

// Add records a check result.
func (v *Validation) Add(name string, passed bool, format string, args ...any) {
	v.Checks = append(v.Checks, Check{
		Name:   name,
		Passed: passed,
		Detail: fmt.Sprintf(format, args...),
	})
}

// Failed returns the checks that did not pass.
func (v Validation) Failed() []Check {
	var failed []Check
	for _, c := range v.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

// Passed reports whether every check passed. No checks counts as passed.
func (v Validation) Passed() bool {
	return len(v.Failed()) == 0
}

// Status returns "passed" or "failed".
func (v Validation) Status() string {
	if v.Passed() {
		return "passed"
	}
	return "failed"
}

// Err returns a *ValidationError for job if any check failed, nil otherwise.
func (v Validation) Err(job string) error {
	failed := v.Failed()
	if len(failed) == 0 {
		return nil
	}
	return &ValidationError{Job: job, Failed: failed}
}

// ValidationError reports the checks that failed for a job.
type ValidationError struct {
	Job    string
	Failed []Check
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Failed))
	for i, c := range e.Failed {
		parts[i] = c.Name + ": " + c.Detail
	}
	return fmt.Sprintf("%s validation failed: %s", e.Job, strings.Join(parts, "; "))
}
