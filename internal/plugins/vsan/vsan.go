// Package vsanplugin toggles VSAN membership for hosts.
package vsanplugin

import (
	"context"
	"fmt"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/model"
	"github.com/esxistate/esxistate/internal/plugin"
	"github.com/esxistate/esxistate/internal/plugins/results"
)

// API is the slice of the vSphere client the VSAN reconciler needs.
type API interface {
	HostNames(ctx context.Context, names []string) ([]string, error)
	VsanEnabled(ctx context.Context, host string) (bool, error)
	SetVsanEnabled(ctx context.Context, host string, enabled, addDisks bool) error
}

type vsanPlugin struct {
	api API
}

// New creates a new VSAN plugin backed by the given client.
func New(api API) plugin.Plugin {
	return &vsanPlugin{api: api}
}

var _ plugin.Plugin = (*vsanPlugin)(nil)

func (p *vsanPlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "vsan",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Toggles VSAN membership for hosts.",
	}
}

func (p *vsanPlugin) Schema() any {
	return config.VSANStep{}
}

type vsanEvaluation struct {
	drifted []string
}

func stateWord(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func (p *vsanPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error) {
	cfg := step.VSAN
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("vsan configuration missing"))
	}

	hosts, err := p.api.HostNames(ctx, step.Hosts)
	if err != nil {
		return nil, plugin.NewStateError(step.ID, err)
	}

	data := &vsanEvaluation{}
	for _, host := range hosts {
		enabled, err := p.api.VsanEnabled(ctx, host)
		if err != nil {
			return nil, plugin.NewStateError(step.ID, err)
		}
		if enabled != cfg.Enabled {
			data.drifted = append(data.drifted, host)
		}
	}

	if len(data.drifted) == 0 {
		return &model.EvaluationResult{
			StepID:         step.ID,
			CurrentState:   model.StatusSatisfied,
			RequiresAction: false,
			Message:        "vsan matches desired state",
			Reconciliation: model.Succeeded(nil, "VSAN is already in the desired state."),
			InternalData:   data,
		}, nil
	}

	return &model.EvaluationResult{
		StepID:         step.ID,
		CurrentState:   model.StatusDrifted,
		RequiresAction: true,
		Message:        fmt.Sprintf("vsan will be %s on %d host(s)", stateWord(cfg.Enabled), len(data.drifted)),
		Diff:           results.ToggleDiff(data.drifted, "vsan", cfg.Enabled),
		Reconciliation: model.Preview(nil, fmt.Sprintf("VSAN will be %s on %d host(s).", stateWord(cfg.Enabled), len(data.drifted))),
		InternalData:   data,
	}, nil
}

func (p *vsanPlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, step *config.Step) (*model.StepResult, error) {
	cfg := step.VSAN
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("vsan configuration missing"))
	}

	data, ok := evalResult.InternalData.(*vsanEvaluation)
	if !ok {
		fresh, err := p.Evaluate(ctx, step)
		if err != nil {
			return nil, err
		}
		data = fresh.InternalData.(*vsanEvaluation)
	}

	changes := model.Changes{}
	for _, host := range data.drifted {
		if err := p.api.SetVsanEnabled(ctx, host, cfg.Enabled, cfg.AddDisks); err != nil {
			return results.Failure(step.ID, err), plugin.NewExecutionError(step.ID, err)
		}
		changes[host] = map[string]any{
			"vsan": map[string]any{"old": !cfg.Enabled, "new": cfg.Enabled},
		}
	}

	comment := fmt.Sprintf("VSAN %s on %d host(s).", stateWord(cfg.Enabled), len(changes))
	return results.Success(step.ID, model.Succeeded(changes, comment), comment), nil
}
