// Package ntpplugin reconciles the host NTP server list and optionally
// restarts the ntpd service after a change.
package ntpplugin

import (
	"context"
	"fmt"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/model"
	"github.com/esxistate/esxistate/internal/plugin"
	"github.com/esxistate/esxistate/internal/plugins/results"
	"github.com/esxistate/esxistate/pkg/diff"
)

const ntpService = "ntpd"

// API is the slice of the vSphere client the NTP reconciler needs.
type API interface {
	HostNames(ctx context.Context, names []string) ([]string, error)
	NTPServers(ctx context.Context, host string) ([]string, error)
	SetNTPServers(ctx context.Context, host string, servers []string) error
	RestartService(ctx context.Context, host, service string) error
}

type ntpPlugin struct {
	api API
}

// New creates a new NTP plugin backed by the given client.
func New(api API) plugin.Plugin {
	return &ntpPlugin{api: api}
}

var _ plugin.Plugin = (*ntpPlugin)(nil)

func (p *ntpPlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "ntp",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Reconciles the host NTP server list.",
	}
}

func (p *ntpPlugin) Schema() any {
	return config.NTPStep{}
}

type ntpEvaluation struct {
	drift map[string]diff.SetDiff
}

func (p *ntpPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error) {
	cfg := step.NTP
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("ntp configuration missing"))
	}

	hosts, err := p.api.HostNames(ctx, step.Hosts)
	if err != nil {
		return nil, plugin.NewStateError(step.ID, err)
	}

	data := &ntpEvaluation{drift: map[string]diff.SetDiff{}}
	currentServers := map[string]any{}
	desiredServers := map[string]any{}
	for _, host := range hosts {
		servers, err := p.api.NTPServers(ctx, host)
		if err != nil {
			return nil, plugin.NewStateError(step.ID, err)
		}
		d := diff.Sets(servers, cfg.Servers)
		if !d.Empty() {
			data.drift[host] = d
			currentServers[host] = servers
			desiredServers[host] = cfg.Servers
		}
	}

	if len(data.drift) == 0 {
		return &model.EvaluationResult{
			StepID:         step.ID,
			CurrentState:   model.StatusSatisfied,
			RequiresAction: false,
			Message:        "ntp servers match desired state",
			Reconciliation: model.Succeeded(nil, "NTP configuration is already in the desired state."),
			InternalData:   data,
		}, nil
	}

	return &model.EvaluationResult{
		StepID:         step.ID,
		CurrentState:   model.StatusDrifted,
		RequiresAction: true,
		Message:        fmt.Sprintf("ntp servers will be updated on %d host(s)", len(data.drift)),
		Diff:           diff.RenderStates(currentServers, desiredServers),
		Reconciliation: model.Preview(nil, fmt.Sprintf("NTP servers will be updated on %d host(s).", len(data.drift))),
		InternalData:   data,
	}, nil
}

func (p *ntpPlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, step *config.Step) (*model.StepResult, error) {
	cfg := step.NTP
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("ntp configuration missing"))
	}

	data, ok := evalResult.InternalData.(*ntpEvaluation)
	if !ok {
		fresh, err := p.Evaluate(ctx, step)
		if err != nil {
			return nil, err
		}
		data = fresh.InternalData.(*ntpEvaluation)
	}

	changes := model.Changes{}
	for host, d := range data.drift {
		if err := p.api.SetNTPServers(ctx, host, cfg.Servers); err != nil {
			return results.Failure(step.ID, err), plugin.NewExecutionError(step.ID, err)
		}
		if cfg.RestartService {
			if err := p.api.RestartService(ctx, host, ntpService); err != nil {
				return results.Failure(step.ID, err), plugin.NewExecutionError(step.ID, err)
			}
		}
		changes[host] = map[string]any{
			"servers": map[string]any{
				"added":   d.Added,
				"removed": d.Removed,
				"current": d.Current,
			},
		}
	}

	comment := fmt.Sprintf("NTP servers updated on %d host(s).", len(changes))
	if cfg.RestartService {
		comment = fmt.Sprintf("NTP servers updated and %s restarted on %d host(s).", ntpService, len(changes))
	}
	return results.Success(step.ID, model.Succeeded(changes, comment), comment), nil
}
