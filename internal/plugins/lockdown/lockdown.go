// Package lockdownplugin toggles host lockdown mode.
package lockdownplugin

import (
	"context"
	"fmt"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/model"
	"github.com/esxistate/esxistate/internal/plugin"
	"github.com/esxistate/esxistate/internal/plugins/results"
)

// API is the slice of the vSphere client the lockdown reconciler needs.
type API interface {
	HostNames(ctx context.Context, names []string) ([]string, error)
	LockdownEnabled(ctx context.Context, host string) (bool, error)
	SetLockdown(ctx context.Context, host string, enabled bool) error
}

type lockdownPlugin struct {
	api API
}

// New creates a new lockdown mode plugin backed by the given client.
func New(api API) plugin.Plugin {
	return &lockdownPlugin{api: api}
}

var _ plugin.Plugin = (*lockdownPlugin)(nil)

func (p *lockdownPlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "lockdown_mode",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Toggles host lockdown mode.",
	}
}

func (p *lockdownPlugin) Schema() any {
	return config.LockdownModeStep{}
}

type lockdownEvaluation struct {
	drifted []string
}

func stateWord(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func (p *lockdownPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error) {
	cfg := step.Lockdown
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("lockdown mode configuration missing"))
	}

	hosts, err := p.api.HostNames(ctx, step.Hosts)
	if err != nil {
		return nil, plugin.NewStateError(step.ID, err)
	}

	data := &lockdownEvaluation{}
	for _, host := range hosts {
		enabled, err := p.api.LockdownEnabled(ctx, host)
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
			Message:        "lockdown mode matches desired state",
			Reconciliation: model.Succeeded(nil, "Lockdown mode is already in the desired state."),
			InternalData:   data,
		}, nil
	}

	return &model.EvaluationResult{
		StepID:         step.ID,
		CurrentState:   model.StatusDrifted,
		RequiresAction: true,
		Message:        fmt.Sprintf("lockdown mode will be %s on %d host(s)", stateWord(cfg.Enabled), len(data.drifted)),
		Diff:           results.ToggleDiff(data.drifted, "lockdown_mode", cfg.Enabled),
		Reconciliation: model.Preview(nil, fmt.Sprintf("Lockdown mode will be %s on %d host(s).", stateWord(cfg.Enabled), len(data.drifted))),
		InternalData:   data,
	}, nil
}

func (p *lockdownPlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, step *config.Step) (*model.StepResult, error) {
	cfg := step.Lockdown
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("lockdown mode configuration missing"))
	}

	data, ok := evalResult.InternalData.(*lockdownEvaluation)
	if !ok {
		fresh, err := p.Evaluate(ctx, step)
		if err != nil {
			return nil, err
		}
		data = fresh.InternalData.(*lockdownEvaluation)
	}

	changes := model.Changes{}
	for _, host := range data.drifted {
		if err := p.api.SetLockdown(ctx, host, cfg.Enabled); err != nil {
			return results.Failure(step.ID, err), plugin.NewExecutionError(step.ID, err)
		}
		changes[host] = map[string]any{
			"lockdown_mode": map[string]any{"old": !cfg.Enabled, "new": cfg.Enabled},
		}
	}

	comment := fmt.Sprintf("Lockdown mode %s on %d host(s).", stateWord(cfg.Enabled), len(changes))
	return results.Success(step.ID, model.Succeeded(changes, comment), comment), nil
}
