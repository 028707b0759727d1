package model

// VerificationStatus classifies the current state of a resource relative to
// its desired state.
type VerificationStatus string

const (
	// StatusSatisfied means current state already matches desired state.
	StatusSatisfied VerificationStatus = "satisfied"
	// StatusMissing means the resource does not exist yet.
	StatusMissing VerificationStatus = "missing"
	// StatusDrifted means the resource exists but differs from desired state.
	StatusDrifted VerificationStatus = "drifted"
	// StatusBlocked means the resource cannot be assessed or changed right now.
	StatusBlocked VerificationStatus = "blocked"
	// StatusUnknown means evaluation could not classify the resource.
	StatusUnknown VerificationStatus = "unknown"
)

// IsValid reports whether the status is one of the declared values.
func (s VerificationStatus) IsValid() bool {
	switch s {
	case StatusSatisfied, StatusMissing, StatusDrifted, StatusBlocked, StatusUnknown:
		return true
	}
	return false
}

// EvaluationResult is the read-only assessment a plugin returns from
// Evaluate. When RequiresAction is true the engine passes the result to
// Apply so the plugin can reuse InternalData instead of re-reading the
// remote host.
type EvaluationResult struct {
	StepID string

	CurrentState VerificationStatus

	RequiresAction bool

	// Message is a human-readable description of what was found.
	Message string

	// Diff is an optional rendered preview of what would change.
	Diff string

	// Reconciliation carries the structured dry-run result so callers see
	// the same {result, changes, comment} shape a real run would produce.
	Reconciliation *Reconciliation

	// InternalData is opaque data handed from Evaluate to Apply.
	InternalData any
}
