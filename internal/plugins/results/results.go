// Package results carries the StepResult constructors shared by the
// resource-kind plugins.
package results

import (
	"github.com/esxistate/esxistate/internal/model"
	"github.com/esxistate/esxistate/pkg/diff"
)

// ToggleDiff renders the per-host before/after preview for a boolean
// attribute flipping to the desired value on the drifted hosts.
func ToggleDiff(hosts []string, attribute string, desired bool) string {
	current := map[string]any{}
	want := map[string]any{}
	for _, host := range hosts {
		current[host] = map[string]any{attribute: !desired}
		want[host] = map[string]any{attribute: desired}
	}
	return diff.RenderStates(current, want)
}

// Success builds a successful StepResult around a realized reconciliation.
func Success(stepID string, rec *model.Reconciliation, message string) *model.StepResult {
	return &model.StepResult{
		StepID:         stepID,
		Status:         model.StatusSuccess,
		Message:        message,
		Reconciliation: rec,
	}
}

// Failure builds a failed StepResult. The reconciliation carries the remote
// fault text verbatim and empty changes; a failed host never reports
// partial diffs.
func Failure(stepID string, err error) *model.StepResult {
	return &model.StepResult{
		StepID:         stepID,
		Status:         model.StatusFailed,
		Message:        err.Error(),
		Reconciliation: model.Failed(err.Error()),
		Error:          err,
	}
}
