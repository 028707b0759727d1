package model

// Outcome is the tri-state result of a reconciliation. Preview stands in for
// both dry-run assessments and absent-type no-ops on resources that were
// never there, mirroring the indeterminate result those cases report.
type Outcome string

const (
	// OutcomeSuccess means the resource matches the desired state, whether
	// or not a mutation was needed to get there.
	OutcomeSuccess Outcome = "success"
	// OutcomeFailed means a remote operation failed and no change was
	// recorded for this reconciliation.
	OutcomeFailed Outcome = "failed"
	// OutcomePreview means no mutation was attempted: either dry-run mode
	// reported a prospective diff, or an absent check found nothing to do.
	OutcomePreview Outcome = "preview"
)

// IsValid reports whether the outcome is one of the declared values.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFailed, OutcomePreview:
		return true
	}
	return false
}

// Changes maps a scope key to the realized or prospective diff for that
// scope. Host-scoped resources key by host name; vCenter-scoped resources
// (roles) key the diff record directly ("new", "old").
type Changes map[string]any

// Reconciliation is the stable result shape shared by every resource kind.
type Reconciliation struct {
	Outcome Outcome `yaml:"result" json:"result"`
	Changes Changes `yaml:"changes" json:"changes"`
	Comment string  `yaml:"comment" json:"comment"`
}

// Succeeded constructs a success result.
func Succeeded(changes Changes, comment string) *Reconciliation {
	if changes == nil {
		changes = Changes{}
	}
	return &Reconciliation{Outcome: OutcomeSuccess, Changes: changes, Comment: comment}
}

// Failed constructs a failure result. Changes are always empty on failure;
// a failed host never leaves partial diffs behind.
func Failed(comment string) *Reconciliation {
	return &Reconciliation{Outcome: OutcomeFailed, Changes: Changes{}, Comment: comment}
}

// Preview constructs a dry-run or no-op result.
func Preview(changes Changes, comment string) *Reconciliation {
	if changes == nil {
		changes = Changes{}
	}
	return &Reconciliation{Outcome: OutcomePreview, Changes: changes, Comment: comment}
}
