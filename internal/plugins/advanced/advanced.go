// Package advancedplugin reconciles advanced option values by key.
package advancedplugin

import (
	"context"
	"fmt"
	"sort"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/model"
	"github.com/esxistate/esxistate/internal/plugin"
	"github.com/esxistate/esxistate/internal/plugins/results"
	"github.com/esxistate/esxistate/pkg/diff"
)

// API is the slice of the vSphere client the advanced settings reconciler needs.
type API interface {
	HostNames(ctx context.Context, names []string) ([]string, error)
	AdvancedOptions(ctx context.Context, host string) (map[string]any, error)
	SetAdvancedOptions(ctx context.Context, host string, options map[string]any) error
}

type advancedPlugin struct {
	api API
}

// New creates a new advanced settings plugin backed by the given client.
func New(api API) plugin.Plugin {
	return &advancedPlugin{api: api}
}

var _ plugin.Plugin = (*advancedPlugin)(nil)

func (p *advancedPlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "advanced_settings",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Reconciles advanced option values.",
	}
}

func (p *advancedPlugin) Schema() any {
	return config.AdvancedSettingsStep{}
}

type advancedEvaluation struct {
	// drift holds the per-host option changes still to apply, keyed by
	// host then option key.
	drift map[string]map[string]diff.Change
}

func (p *advancedPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error) {
	cfg := step.Advanced
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("advanced settings configuration missing"))
	}

	hosts, err := p.api.HostNames(ctx, step.Hosts)
	if err != nil {
		return nil, plugin.NewStateError(step.ID, err)
	}

	data := &advancedEvaluation{drift: map[string]map[string]diff.Change{}}
	driftedKeys := map[string]struct{}{}
	for _, host := range hosts {
		current, err := p.api.AdvancedOptions(ctx, host)
		if err != nil {
			return nil, plugin.NewStateError(step.ID, err)
		}
		changed := diff.Scalars(current, cfg.Options)
		if len(changed) > 0 {
			data.drift[host] = changed
			for key := range changed {
				driftedKeys[key] = struct{}{}
			}
		}
	}

	if len(data.drift) == 0 {
		return &model.EvaluationResult{
			StepID:         step.ID,
			CurrentState:   model.StatusSatisfied,
			RequiresAction: false,
			Message:        "advanced settings match desired state",
			Reconciliation: model.Succeeded(nil, "Advanced settings are already in the desired state."),
			InternalData:   data,
		}, nil
	}

	keys := make([]string, 0, len(driftedKeys))
	for key := range driftedKeys {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	currentOptions := map[string]any{}
	desiredOptions := map[string]any{}
	for host, changed := range data.drift {
		cur := map[string]any{}
		des := map[string]any{}
		for key, change := range changed {
			cur[key] = change.Old
			des[key] = change.New
		}
		currentOptions[host] = cur
		desiredOptions[host] = des
	}

	return &model.EvaluationResult{
		StepID:         step.ID,
		CurrentState:   model.StatusDrifted,
		RequiresAction: true,
		Message:        fmt.Sprintf("%d advanced setting(s) will be updated", len(keys)),
		Diff:           diff.RenderStates(currentOptions, desiredOptions),
		Reconciliation: model.Preview(nil, fmt.Sprintf("Advanced settings %v will be updated on %d host(s).", keys, len(data.drift))),
		InternalData:   data,
	}, nil
}

func (p *advancedPlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, step *config.Step) (*model.StepResult, error) {
	cfg := step.Advanced
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("advanced settings configuration missing"))
	}

	data, ok := evalResult.InternalData.(*advancedEvaluation)
	if !ok {
		fresh, err := p.Evaluate(ctx, step)
		if err != nil {
			return nil, err
		}
		data = fresh.InternalData.(*advancedEvaluation)
	}

	changes := model.Changes{}
	for host, drift := range data.drift {
		// Only the drifted keys go over the wire.
		options := make(map[string]any, len(drift))
		hostChanges := make(map[string]any, len(drift))
		for key, change := range drift {
			options[key] = change.New
			hostChanges[key] = map[string]any{"old": change.Old, "new": change.New}
		}
		if err := p.api.SetAdvancedOptions(ctx, host, options); err != nil {
			return results.Failure(step.ID, err), plugin.NewExecutionError(step.ID, err)
		}
		changes[host] = hostChanges
	}

	comment := fmt.Sprintf("Advanced settings updated on %d host(s).", len(changes))
	return results.Success(step.ID, model.Succeeded(changes, comment), comment), nil
}
