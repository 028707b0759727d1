// Package passwordplugin rotates a local account password. The current
// password is not readable from the endpoint, so every run outside
// dry-run applies the update; the password value itself never appears in
// changes, comments or logs.
package passwordplugin

import (
	"context"
	"fmt"
	"os"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/model"
	"github.com/esxistate/esxistate/internal/plugin"
	"github.com/esxistate/esxistate/internal/plugins/results"
)

// API is the slice of the vSphere client the password reconciler needs.
type API interface {
	HostNames(ctx context.Context, names []string) ([]string, error)
	UpdatePassword(ctx context.Context, host, name, password string) error
}

type passwordPlugin struct {
	api API
}

// New creates a new password plugin backed by the given client.
func New(api API) plugin.Plugin {
	return &passwordPlugin{api: api}
}

var _ plugin.Plugin = (*passwordPlugin)(nil)

func (p *passwordPlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "password",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Rotates local account passwords.",
	}
}

func (p *passwordPlugin) Schema() any {
	return config.PasswordStep{}
}

type passwordEvaluation struct {
	hosts []string
}

func resolvePassword(cfg *config.PasswordStep) (string, error) {
	if cfg.Password != "" {
		return cfg.Password, nil
	}
	if cfg.PasswordEnv != "" {
		if value := os.Getenv(cfg.PasswordEnv); value != "" {
			return value, nil
		}
		return "", fmt.Errorf("environment variable %s is not set", cfg.PasswordEnv)
	}
	return "", fmt.Errorf("no password source configured for user %s", cfg.Username)
}

func (p *passwordPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error) {
	cfg := step.Password
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("password configuration missing"))
	}

	if _, err := resolvePassword(cfg); err != nil {
		return nil, plugin.NewValidationError(step.ID, err)
	}

	hosts, err := p.api.HostNames(ctx, step.Hosts)
	if err != nil {
		return nil, plugin.NewStateError(step.ID, err)
	}

	return &model.EvaluationResult{
		StepID:         step.ID,
		CurrentState:   model.StatusUnknown,
		RequiresAction: true,
		Message:        fmt.Sprintf("password for %s will be updated", cfg.Username),
		Reconciliation: model.Preview(nil, fmt.Sprintf("Password for %s will be updated on %d host(s).", cfg.Username, len(hosts))),
		InternalData:   &passwordEvaluation{hosts: hosts},
	}, nil
}

func (p *passwordPlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, step *config.Step) (*model.StepResult, error) {
	cfg := step.Password
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("password configuration missing"))
	}

	password, err := resolvePassword(cfg)
	if err != nil {
		return nil, plugin.NewValidationError(step.ID, err)
	}

	data, ok := evalResult.InternalData.(*passwordEvaluation)
	if !ok {
		fresh, err := p.Evaluate(ctx, step)
		if err != nil {
			return nil, err
		}
		data = fresh.InternalData.(*passwordEvaluation)
	}

	changes := model.Changes{}
	for _, host := range data.hosts {
		if err := p.api.UpdatePassword(ctx, host, cfg.Username, password); err != nil {
			return results.Failure(step.ID, err), plugin.NewExecutionError(step.ID, err)
		}
		changes[host] = map[string]any{"password": true}
	}

	comment := fmt.Sprintf("Password for %s updated on %d host(s).", cfg.Username, len(changes))
	return results.Success(step.ID, model.Succeeded(changes, comment), comment), nil
}
