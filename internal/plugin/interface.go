package plugin

import (
	"context"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/model"
)

// Plugin defines the contract every resource-kind reconciler must satisfy.
//
// Implementations should:
//   - Return identity information via PluginMetadata()
//   - Provide the step configuration schema via Schema()
//   - Implement read-only state assessment via Evaluate()
//   - Implement state mutation via Apply()
type Plugin interface {
	// PluginMetadata returns the plugin's identity and capabilities.
	PluginMetadata() PluginMetadata

	// Schema returns the struct that defines the YAML configuration schema
	// for this plugin's steps.
	Schema() any

	// Evaluate performs a STRICTLY READ-ONLY assessment of the remote
	// host's current state against the desired state in the step
	// configuration. It must not mutate anything; it fetches current
	// state, computes the diff, and reports what a real run would do.
	//
	// The returned EvaluationResult carries the prospective Reconciliation
	// (the dry-run {result, changes, comment} record) and optional
	// InternalData that Apply can reuse to avoid a second read.
	Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error)

	// Apply mutates the remote host(s) to match the desired state. The
	// engine only calls it when Evaluate reported RequiresAction.
	//
	// Apply must be idempotent: a second call with the same desired state
	// finds nothing to change. A remote failure aborts the reconciliation
	// with a failed result carrying the fault text; no retries, and no
	// partial changes are reported.
	Apply(ctx context.Context, evalResult *model.EvaluationResult, step *config.Step) (*model.StepResult, error)
}
