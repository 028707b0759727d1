// Package firewallplugin toggles individual host firewall rulesets.
package firewallplugin

import (
	"context"
	"fmt"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/model"
	"github.com/esxistate/esxistate/internal/plugin"
	"github.com/esxistate/esxistate/internal/plugins/results"
	"github.com/esxistate/esxistate/internal/vmware"
)

// API is the slice of the vSphere client the firewall reconciler needs.
type API interface {
	HostNames(ctx context.Context, names []string) ([]string, error)
	ListFirewallRulesets(ctx context.Context, host string) (map[string]vmware.FirewallRuleset, error)
	SetFirewallRuleset(ctx context.Context, host, key string, enabled bool) error
}

type firewallPlugin struct {
	api API
}

// New creates a new firewall ruleset plugin backed by the given client.
func New(api API) plugin.Plugin {
	return &firewallPlugin{api: api}
}

var _ plugin.Plugin = (*firewallPlugin)(nil)

func (p *firewallPlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "firewall_ruleset",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Toggles host firewall rulesets.",
	}
}

func (p *firewallPlugin) Schema() any {
	return config.FirewallRulesetStep{}
}

type firewallEvaluation struct {
	drifted []string
}

func stateWord(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func (p *firewallPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error) {
	cfg := step.Firewall
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("firewall ruleset configuration missing"))
	}

	hosts, err := p.api.HostNames(ctx, step.Hosts)
	if err != nil {
		return nil, plugin.NewStateError(step.ID, err)
	}

	data := &firewallEvaluation{}
	for _, host := range hosts {
		rulesets, err := p.api.ListFirewallRulesets(ctx, host)
		if err != nil {
			return nil, plugin.NewStateError(step.ID, err)
		}
		ruleset, ok := rulesets[cfg.Ruleset]
		if !ok {
			// An unknown ruleset key is a plan error, not drift.
			return &model.EvaluationResult{
				StepID:         step.ID,
				CurrentState:   model.StatusBlocked,
				RequiresAction: false,
				Message:        fmt.Sprintf("firewall ruleset %s not found on %s", cfg.Ruleset, host),
				Reconciliation: model.Failed(fmt.Sprintf("Firewall ruleset %s does not exist on host %s.", cfg.Ruleset, host)),
				InternalData:   data,
			}, nil
		}
		if ruleset.Enabled != cfg.Enabled {
			data.drifted = append(data.drifted, host)
		}
	}

	if len(data.drifted) == 0 {
		return &model.EvaluationResult{
			StepID:         step.ID,
			CurrentState:   model.StatusSatisfied,
			RequiresAction: false,
			Message:        fmt.Sprintf("firewall ruleset %s matches desired state", cfg.Ruleset),
			Reconciliation: model.Succeeded(nil, fmt.Sprintf("Firewall ruleset %s is already in the desired state.", cfg.Ruleset)),
			InternalData:   data,
		}, nil
	}

	return &model.EvaluationResult{
		StepID:         step.ID,
		CurrentState:   model.StatusDrifted,
		RequiresAction: true,
		Message:        fmt.Sprintf("firewall ruleset %s will be %s on %d host(s)", cfg.Ruleset, stateWord(cfg.Enabled), len(data.drifted)),
		Diff:           results.ToggleDiff(data.drifted, cfg.Ruleset, cfg.Enabled),
		Reconciliation: model.Preview(nil, fmt.Sprintf("Firewall ruleset %s will be %s on %d host(s).", cfg.Ruleset, stateWord(cfg.Enabled), len(data.drifted))),
		InternalData:   data,
	}, nil
}

func (p *firewallPlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, step *config.Step) (*model.StepResult, error) {
	cfg := step.Firewall
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("firewall ruleset configuration missing"))
	}

	data, ok := evalResult.InternalData.(*firewallEvaluation)
	if !ok {
		fresh, err := p.Evaluate(ctx, step)
		if err != nil {
			return nil, err
		}
		data = fresh.InternalData.(*firewallEvaluation)
	}

	changes := model.Changes{}
	for _, host := range data.drifted {
		if err := p.api.SetFirewallRuleset(ctx, host, cfg.Ruleset, cfg.Enabled); err != nil {
			return results.Failure(step.ID, err), plugin.NewExecutionError(step.ID, err)
		}
		changes[host] = map[string]any{
			cfg.Ruleset: map[string]any{"old": !cfg.Enabled, "new": cfg.Enabled},
		}
	}

	comment := fmt.Sprintf("Firewall ruleset %s %s on %d host(s).", cfg.Ruleset, stateWord(cfg.Enabled), len(changes))
	return results.Success(step.ID, model.Succeeded(changes, comment), comment), nil
}
