package model

import "time"

// VerificationResult captures the read-only assessment of one step.
type VerificationResult struct {
	StepID    string
	Status    VerificationStatus
	Message   string
	Details   string
	Error     error
	Duration  time.Duration
	Timestamp time.Time
}

// VerificationSummary aggregates the verification results of a plan run.
type VerificationSummary struct {
	TotalSteps int
	Satisfied  int
	Missing    int
	Drifted    int
	Blocked    int
	Unknown    int
	Results    []*VerificationResult
	Duration   time.Duration
}

// AllSatisfied reports whether every assessed step matched its desired
// state.
func (s *VerificationSummary) AllSatisfied() bool {
	return s.Satisfied == s.TotalSteps
}

// ExitCode maps the summary onto a process exit code: zero when nothing
// needs to change, one otherwise.
func (s *VerificationSummary) ExitCode() int {
	if s.AllSatisfied() {
		return 0
	}
	return 1
}
