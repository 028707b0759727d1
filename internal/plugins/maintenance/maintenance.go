// Package maintenanceplugin drives hosts in and out of maintenance mode.
package maintenanceplugin

import (
	"context"
	"fmt"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/model"
	"github.com/esxistate/esxistate/internal/plugin"
	"github.com/esxistate/esxistate/internal/plugins/results"
)

// API is the slice of the vSphere client the maintenance reconciler needs.
type API interface {
	HostNames(ctx context.Context, names []string) ([]string, error)
	InMaintenanceMode(ctx context.Context, host string) (bool, error)
	EnterMaintenanceMode(ctx context.Context, host string, timeout int, evacuate bool) error
	ExitMaintenanceMode(ctx context.Context, host string, timeout int) error
}

type maintenancePlugin struct {
	api API
}

// New creates a new maintenance mode plugin backed by the given client.
func New(api API) plugin.Plugin {
	return &maintenancePlugin{api: api}
}

var _ plugin.Plugin = (*maintenancePlugin)(nil)

func (p *maintenancePlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "maintenance_mode",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Drives hosts in and out of maintenance mode.",
	}
}

func (p *maintenancePlugin) Schema() any {
	return config.MaintenanceModeStep{}
}

type maintenanceEvaluation struct {
	// drifted holds the hosts whose mode differs from the desired one.
	drifted []string
}

func modeWord(enter bool) string {
	if enter {
		return "entered"
	}
	return "exited"
}

func (p *maintenancePlugin) Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error) {
	cfg := step.Maintenance
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("maintenance mode configuration missing"))
	}

	hosts, err := p.api.HostNames(ctx, step.Hosts)
	if err != nil {
		return nil, plugin.NewStateError(step.ID, err)
	}

	data := &maintenanceEvaluation{}
	for _, host := range hosts {
		inMode, err := p.api.InMaintenanceMode(ctx, host)
		if err != nil {
			return nil, plugin.NewStateError(step.ID, err)
		}
		if inMode != cfg.Enter {
			data.drifted = append(data.drifted, host)
		}
	}

	if len(data.drifted) == 0 {
		return &model.EvaluationResult{
			StepID:         step.ID,
			CurrentState:   model.StatusSatisfied,
			RequiresAction: false,
			Message:        "maintenance mode matches desired state",
			Reconciliation: model.Succeeded(nil, "Maintenance mode is already in the desired state."),
			InternalData:   data,
		}, nil
	}

	return &model.EvaluationResult{
		StepID:         step.ID,
		CurrentState:   model.StatusDrifted,
		RequiresAction: true,
		Message:        fmt.Sprintf("maintenance mode will be %s on %d host(s)", modeWord(cfg.Enter), len(data.drifted)),
		Diff:           results.ToggleDiff(data.drifted, "maintenance_mode", cfg.Enter),
		Reconciliation: model.Preview(nil, fmt.Sprintf("Maintenance mode will be %s on %d host(s).", modeWord(cfg.Enter), len(data.drifted))),
		InternalData:   data,
	}, nil
}

func (p *maintenancePlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, step *config.Step) (*model.StepResult, error) {
	cfg := step.Maintenance
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("maintenance mode configuration missing"))
	}

	data, ok := evalResult.InternalData.(*maintenanceEvaluation)
	if !ok {
		fresh, err := p.Evaluate(ctx, step)
		if err != nil {
			return nil, err
		}
		data = fresh.InternalData.(*maintenanceEvaluation)
	}

	changes := model.Changes{}
	for _, host := range data.drifted {
		var err error
		if cfg.Enter {
			err = p.api.EnterMaintenanceMode(ctx, host, cfg.Timeout, cfg.Evacuate)
		} else {
			err = p.api.ExitMaintenanceMode(ctx, host, cfg.Timeout)
		}
		if err != nil {
			return results.Failure(step.ID, err), plugin.NewExecutionError(step.ID, err)
		}
		changes[host] = map[string]any{
			"maintenance_mode": map[string]any{"old": !cfg.Enter, "new": cfg.Enter},
		}
	}

	comment := fmt.Sprintf("Maintenance mode %s on %d host(s).", modeWord(cfg.Enter), len(changes))
	return results.Success(step.ID, model.Succeeded(changes, comment), comment), nil
}
