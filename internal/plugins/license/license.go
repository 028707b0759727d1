// Package licenseplugin reconciles license key registrations. Licenses are
// kept by the endpoint's license manager, so changes are keyed by license
// rather than by host.
package licenseplugin

import (
	"context"
	"fmt"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/model"
	"github.com/esxistate/esxistate/internal/plugin"
	"github.com/esxistate/esxistate/internal/plugins/results"
	"github.com/esxistate/esxistate/internal/vmware"
	"github.com/esxistate/esxistate/pkg/diff"
)

// API is the slice of the vSphere client the license reconciler needs.
type API interface {
	ListLicenses(ctx context.Context) (map[string]vmware.License, error)
	AddLicense(ctx context.Context, key string, labels map[string]string) error
	RemoveLicense(ctx context.Context, key string) error
}

type licensePlugin struct {
	api API
}

// New creates a new license plugin backed by the given client.
func New(api API) plugin.Plugin {
	return &licensePlugin{api: api}
}

var _ plugin.Plugin = (*licensePlugin)(nil)

func (p *licensePlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "license",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Manages license key registrations.",
	}
}

func (p *licensePlugin) Schema() any {
	return config.LicenseStep{}
}

type licenseEvaluation struct {
	exists  bool
	current vmware.License
}

func licenseSnapshot(lic vmware.License) map[string]any {
	return map[string]any{"key": lic.Key, "name": lic.Name, "edition": lic.Edition}
}

func (p *licensePlugin) Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error) {
	cfg := step.License
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("license configuration missing"))
	}

	licenses, err := p.api.ListLicenses(ctx)
	if err != nil {
		return nil, plugin.NewStateError(step.ID, err)
	}

	current, exists := licenses[cfg.Key]
	data := &licenseEvaluation{exists: exists, current: current}

	if cfg.Ensure == "absent" {
		if !exists {
			return &model.EvaluationResult{
				StepID:         step.ID,
				CurrentState:   model.StatusSatisfied,
				RequiresAction: false,
				Message:        fmt.Sprintf("license %s is not present", cfg.Key),
				Reconciliation: model.Preview(nil, fmt.Sprintf("License %s is not present.", cfg.Key)),
				InternalData:   data,
			}, nil
		}
		return &model.EvaluationResult{
			StepID:         step.ID,
			CurrentState:   model.StatusDrifted,
			RequiresAction: true,
			Message:        fmt.Sprintf("license %s will be removed", cfg.Key),
			Diff:           diff.RenderStates(licenseSnapshot(current), nil),
			Reconciliation: model.Preview(nil, fmt.Sprintf("License %s will be removed.", cfg.Key)),
			InternalData:   data,
		}, nil
	}

	if !exists {
		return &model.EvaluationResult{
			StepID:         step.ID,
			CurrentState:   model.StatusMissing,
			RequiresAction: true,
			Message:        fmt.Sprintf("license %s will be added", cfg.Key),
			Diff:           diff.RenderStates(nil, map[string]any{"key": cfg.Key}),
			Reconciliation: model.Preview(nil, fmt.Sprintf("License %s will be added.", cfg.Key)),
			InternalData:   data,
		}, nil
	}

	return &model.EvaluationResult{
		StepID:         step.ID,
		CurrentState:   model.StatusSatisfied,
		RequiresAction: false,
		Message:        fmt.Sprintf("license %s is registered", cfg.Key),
		Reconciliation: model.Succeeded(nil, fmt.Sprintf("License %s is already registered.", cfg.Key)),
		InternalData:   data,
	}, nil
}

func (p *licensePlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, step *config.Step) (*model.StepResult, error) {
	cfg := step.License
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("license configuration missing"))
	}

	data, ok := evalResult.InternalData.(*licenseEvaluation)
	if !ok {
		fresh, err := p.Evaluate(ctx, step)
		if err != nil {
			return nil, err
		}
		data = fresh.InternalData.(*licenseEvaluation)
	}

	if cfg.Ensure == "absent" {
		if err := p.api.RemoveLicense(ctx, cfg.Key); err != nil {
			return results.Failure(step.ID, err), plugin.NewExecutionError(step.ID, err)
		}
		changes := model.Changes{
			"old": map[string]any{"key": data.current.Key, "name": data.current.Name},
		}
		comment := fmt.Sprintf("License %s removed.", cfg.Key)
		return results.Success(step.ID, model.Succeeded(changes, comment), comment), nil
	}

	if err := p.api.AddLicense(ctx, cfg.Key, cfg.Labels); err != nil {
		return results.Failure(step.ID, err), plugin.NewExecutionError(step.ID, err)
	}
	changes := model.Changes{
		"new": map[string]any{"key": cfg.Key},
	}
	comment := fmt.Sprintf("License %s added.", cfg.Key)
	return results.Success(step.ID, model.Succeeded(changes, comment), comment), nil
}
