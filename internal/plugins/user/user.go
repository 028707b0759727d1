package userplugin

import (
	"context"
	"fmt"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/model"
	"github.com/esxistate/esxistate/internal/plugin"
	"github.com/esxistate/esxistate/internal/plugins/results"
	"github.com/esxistate/esxistate/internal/vmware"
	"github.com/esxistate/esxistate/pkg/diff"
	stateerrors "github.com/esxistate/esxistate/pkg/errors"
)

// API is the slice of the vSphere client the user reconciler needs.
type API interface {
	HostNames(ctx context.Context, names []string) ([]string, error)
	ListUsers(ctx context.Context) (map[string]vmware.User, error)
	AddUser(ctx context.Context, host string, spec vmware.UserSpec) error
	UpdateUser(ctx context.Context, host string, spec vmware.UserSpec) error
	RemoveUser(ctx context.Context, host, name string) error
}

type userPlugin struct {
	api API
}

// New creates a new user plugin backed by the given client.
func New(api API) plugin.Plugin {
	return &userPlugin{api: api}
}

var _ plugin.Plugin = (*userPlugin)(nil)

func (p *userPlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "user",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Manages local ESXi accounts.",
	}
}

func (p *userPlugin) Schema() any {
	return config.UserStep{}
}

type userEvaluation struct {
	hosts   []string
	exists  bool
	current vmware.User
}

func (p *userPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error) {
	cfg := step.User
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("user configuration missing"))
	}

	hosts, err := p.api.HostNames(ctx, step.Hosts)
	if err != nil {
		return nil, plugin.NewStateError(step.ID, err)
	}

	users, err := p.api.ListUsers(ctx)
	if err != nil {
		return nil, plugin.NewStateError(step.ID, err)
	}

	current, exists := users[cfg.Username]
	data := &userEvaluation{hosts: hosts, exists: exists, current: current}

	if cfg.Ensure == "absent" {
		if !exists {
			return &model.EvaluationResult{
				StepID:         step.ID,
				CurrentState:   model.StatusSatisfied,
				RequiresAction: false,
				Message:        fmt.Sprintf("user %s is not present", cfg.Username),
				Reconciliation: model.Preview(nil, fmt.Sprintf("User %s will be deleted on 0 host(s).", cfg.Username)),
				InternalData:   data,
			}, nil
		}
		return &model.EvaluationResult{
			StepID:         step.ID,
			CurrentState:   model.StatusDrifted,
			RequiresAction: true,
			Message:        fmt.Sprintf("user %s will be deleted", cfg.Username),
			Diff:           diff.RenderStates(userSnapshot(current.Name, current.Description), nil),
			Reconciliation: model.Preview(nil, fmt.Sprintf("User %s will be deleted on %d host(s).", cfg.Username, len(hosts))),
			InternalData:   data,
		}, nil
	}

	if !exists {
		return &model.EvaluationResult{
			StepID:         step.ID,
			CurrentState:   model.StatusMissing,
			RequiresAction: true,
			Message:        fmt.Sprintf("user %s will be created", cfg.Username),
			Diff:           diff.RenderStates(nil, userSnapshot(cfg.Username, cfg.Description)),
			Reconciliation: model.Preview(nil, fmt.Sprintf("User %s will be created on %d host(s).", cfg.Username, len(hosts))),
			InternalData:   data,
		}, nil
	}

	// Password hashes are not readable from the endpoint, so drift is
	// judged on description alone; password rotation is the password
	// step's job.
	if current.Description == cfg.Description {
		return &model.EvaluationResult{
			StepID:         step.ID,
			CurrentState:   model.StatusSatisfied,
			RequiresAction: false,
			Message:        fmt.Sprintf("user %s matches desired state", cfg.Username),
			Reconciliation: model.Succeeded(nil, fmt.Sprintf("User %s is already in the desired state.", cfg.Username)),
			InternalData:   data,
		}, nil
	}

	return &model.EvaluationResult{
		StepID:         step.ID,
		CurrentState:   model.StatusDrifted,
		RequiresAction: true,
		Message:        fmt.Sprintf("user %s will be updated", cfg.Username),
		Diff:           diff.RenderStates(userSnapshot(current.Name, current.Description), userSnapshot(cfg.Username, cfg.Description)),
		Reconciliation: model.Preview(nil, fmt.Sprintf("User %s will be updated on %d host(s).", cfg.Username, len(hosts))),
		InternalData:   data,
	}, nil
}

func userSnapshot(name, description string) map[string]any {
	return map[string]any{"username": name, "description": description}
}

func (p *userPlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, step *config.Step) (*model.StepResult, error) {
	cfg := step.User
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("user configuration missing"))
	}

	data, ok := evalResult.InternalData.(*userEvaluation)
	if !ok {
		fresh, err := p.Evaluate(ctx, step)
		if err != nil {
			return nil, err
		}
		data = fresh.InternalData.(*userEvaluation)
	}

	if cfg.Ensure == "absent" {
		return p.remove(ctx, step, cfg, data)
	}
	if data.exists {
		return p.update(ctx, step, cfg, data)
	}
	return p.create(ctx, step, cfg, data)
}

func (p *userPlugin) create(ctx context.Context, step *config.Step, cfg *config.UserStep, data *userEvaluation) (*model.StepResult, error) {
	spec := vmware.UserSpec{Name: cfg.Username, Password: cfg.Password, Description: cfg.Description}

	changes := model.Changes{}
	for _, host := range data.hosts {
		if err := p.api.AddUser(ctx, host, spec); err != nil {
			return results.Failure(step.ID, err), plugin.NewExecutionError(step.ID, err)
		}
		changes[host] = map[string]any{
			"new": map[string]any{"name": cfg.Username, "description": cfg.Description},
		}
	}

	comment := fmt.Sprintf("User %s created on %d host(s).", cfg.Username, len(data.hosts))
	return results.Success(step.ID, model.Succeeded(changes, comment), comment), nil
}

func (p *userPlugin) update(ctx context.Context, step *config.Step, cfg *config.UserStep, data *userEvaluation) (*model.StepResult, error) {
	spec := vmware.UserSpec{Name: cfg.Username, Password: cfg.Password, Description: cfg.Description}

	changes := model.Changes{}
	for _, host := range data.hosts {
		if err := p.api.UpdateUser(ctx, host, spec); err != nil {
			return results.Failure(step.ID, err), plugin.NewExecutionError(step.ID, err)
		}
		changes[host] = map[string]any{
			"old": map[string]any{"name": cfg.Username, "description": data.current.Description},
			"new": map[string]any{"name": cfg.Username, "description": cfg.Description},
		}
	}

	comment := fmt.Sprintf("User %s updated on %d host(s).", cfg.Username, len(data.hosts))
	return results.Success(step.ID, model.Succeeded(changes, comment), comment), nil
}

func (p *userPlugin) remove(ctx context.Context, step *config.Step, cfg *config.UserStep, data *userEvaluation) (*model.StepResult, error) {
	changes := model.Changes{}
	for _, host := range data.hosts {
		if err := p.api.RemoveUser(ctx, host, cfg.Username); err != nil {
			// Already gone on this host, nothing to undo.
			if _, ok := stateerrors.AsNotFound(err); ok {
				continue
			}
			return results.Failure(step.ID, err), plugin.NewExecutionError(step.ID, err)
		}
		changes[host] = map[string]any{cfg.Username: true}
	}

	comment := fmt.Sprintf("User %s deleted on %d host(s).", cfg.Username, len(data.hosts))
	return results.Success(step.ID, model.Succeeded(changes, comment), comment), nil
}
