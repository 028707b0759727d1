// Package roleplugin reconciles authorization roles and their privilege
// sets. Roles live on the vCenter (or standalone host) authorization
// manager, so changes are keyed by role rather than by host.
package roleplugin

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/model"
	"github.com/esxistate/esxistate/internal/plugin"
	"github.com/esxistate/esxistate/internal/plugins/results"
	"github.com/esxistate/esxistate/internal/vmware"
	"github.com/esxistate/esxistate/pkg/diff"
)

// API is the slice of the vSphere client the role reconciler needs.
type API interface {
	ListRoles(ctx context.Context) (map[string]vmware.Role, error)
	AddRole(ctx context.Context, name string, privilegeIDs []string) error
	UpdateRole(ctx context.Context, id int32, name string, privilegeIDs []string) error
	RemoveRole(ctx context.Context, id int32) error
}

type rolePlugin struct {
	api API
}

// New creates a new role plugin backed by the given client.
func New(api API) plugin.Plugin {
	return &rolePlugin{api: api}
}

var _ plugin.Plugin = (*rolePlugin)(nil)

func (p *rolePlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "role",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Manages authorization roles and their privileges.",
	}
}

func (p *rolePlugin) Schema() any {
	return config.RoleStep{}
}

type roleEvaluation struct {
	exists  bool
	current vmware.Role
	privs   diff.SetDiff
}

func (p *rolePlugin) Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error) {
	cfg := step.Role
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("role configuration missing"))
	}

	roles, err := p.api.ListRoles(ctx)
	if err != nil {
		return nil, plugin.NewStateError(step.ID, err)
	}

	current, exists := roles[cfg.Role]
	data := &roleEvaluation{exists: exists, current: current}

	if cfg.Ensure == "absent" {
		if !exists {
			return &model.EvaluationResult{
				StepID:         step.ID,
				CurrentState:   model.StatusSatisfied,
				RequiresAction: false,
				Message:        fmt.Sprintf("role %s is not present", cfg.Role),
				Reconciliation: model.Preview(nil, fmt.Sprintf("Role %s is not present.", cfg.Role)),
				InternalData:   data,
			}, nil
		}
		if current.System {
			return &model.EvaluationResult{
				StepID:         step.ID,
				CurrentState:   model.StatusBlocked,
				RequiresAction: false,
				Message:        fmt.Sprintf("role %s is a system role", cfg.Role),
				Reconciliation: model.Failed(fmt.Sprintf("Role %s is a system role and cannot be deleted.", cfg.Role)),
				InternalData:   data,
			}, nil
		}
		return &model.EvaluationResult{
			StepID:         step.ID,
			CurrentState:   model.StatusDrifted,
			RequiresAction: true,
			Message:        fmt.Sprintf("role %s will be deleted", cfg.Role),
			Diff:           diff.RenderStates(roleSnapshot(current.Name, current.Privileges), nil),
			Reconciliation: model.Preview(nil, fmt.Sprintf("Role %s will be deleted.", cfg.Role)),
			InternalData:   data,
		}, nil
	}

	if !exists {
		return &model.EvaluationResult{
			StepID:         step.ID,
			CurrentState:   model.StatusMissing,
			RequiresAction: true,
			Message:        fmt.Sprintf("role %s will be created", cfg.Role),
			Diff:           diff.RenderStates(nil, roleSnapshot(cfg.Role, cfg.PrivilegeIDs)),
			Reconciliation: model.Preview(nil, fmt.Sprintf("Role %s will be created.", cfg.Role)),
			InternalData:   data,
		}, nil
	}

	data.privs = diff.Sets(current.Privileges, cfg.PrivilegeIDs)
	if data.privs.Empty() {
		return &model.EvaluationResult{
			StepID:         step.ID,
			CurrentState:   model.StatusSatisfied,
			RequiresAction: false,
			Message:        fmt.Sprintf("role %s matches desired state", cfg.Role),
			Reconciliation: model.Succeeded(nil, fmt.Sprintf("Role %s is already in the desired state.", cfg.Role)),
			InternalData:   data,
		}, nil
	}

	return &model.EvaluationResult{
		StepID:         step.ID,
		CurrentState:   model.StatusDrifted,
		RequiresAction: true,
		Message:        fmt.Sprintf("role %s privileges will be updated", cfg.Role),
		Diff:           diff.RenderStates(roleSnapshot(current.Name, current.Privileges), roleSnapshot(cfg.Role, cfg.PrivilegeIDs)),
		Reconciliation: model.Preview(nil, privilegeComment(cfg.Role, data.privs)),
		InternalData:   data,
	}, nil
}

func roleSnapshot(name string, privileges []string) map[string]any {
	sorted := append([]string(nil), privileges...)
	sort.Strings(sorted)
	return map[string]any{"role_name": name, "privilege_ids": sorted}
}

func privilegeComment(role string, d diff.SetDiff) string {
	parts := make([]string, 0, 2)
	if len(d.Added) > 0 {
		parts = append(parts, fmt.Sprintf("%d privileges will be added", len(d.Added)))
	}
	if len(d.Removed) > 0 {
		parts = append(parts, fmt.Sprintf("%d privileges will be removed", len(d.Removed)))
	}
	return fmt.Sprintf("Role %s: %s.", role, strings.Join(parts, ", "))
}

func (p *rolePlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, step *config.Step) (*model.StepResult, error) {
	cfg := step.Role
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("role configuration missing"))
	}

	data, ok := evalResult.InternalData.(*roleEvaluation)
	if !ok {
		fresh, err := p.Evaluate(ctx, step)
		if err != nil {
			return nil, err
		}
		data = fresh.InternalData.(*roleEvaluation)
	}

	if cfg.Ensure == "absent" {
		return p.remove(ctx, step, cfg, data)
	}
	if data.exists {
		return p.update(ctx, step, cfg, data)
	}
	return p.create(ctx, step, cfg)
}

// roleChanges reports created/updated roles the same way: the new role name
// with the privilege membership diff nested beneath it.
func roleChanges(name string, privs diff.SetDiff) model.Changes {
	return model.Changes{
		"new": map[string]any{
			"role_name": name,
			"privilege_ids": map[string]any{
				"added":   privs.Added,
				"removed": privs.Removed,
				"current": privs.Current,
			},
		},
	}
}

func (p *rolePlugin) create(ctx context.Context, step *config.Step, cfg *config.RoleStep) (*model.StepResult, error) {
	if err := p.api.AddRole(ctx, cfg.Role, cfg.PrivilegeIDs); err != nil {
		return results.Failure(step.ID, err), plugin.NewExecutionError(step.ID, err)
	}

	changes := roleChanges(cfg.Role, diff.Sets(nil, cfg.PrivilegeIDs))
	comment := fmt.Sprintf("Role %s created.", cfg.Role)
	return results.Success(step.ID, model.Succeeded(changes, comment), comment), nil
}

func (p *rolePlugin) update(ctx context.Context, step *config.Step, cfg *config.RoleStep, data *roleEvaluation) (*model.StepResult, error) {
	if err := p.api.UpdateRole(ctx, data.current.ID, cfg.Role, cfg.PrivilegeIDs); err != nil {
		return results.Failure(step.ID, err), plugin.NewExecutionError(step.ID, err)
	}

	changes := roleChanges(cfg.Role, data.privs)
	comment := fmt.Sprintf("Role %s updated.", cfg.Role)
	return results.Success(step.ID, model.Succeeded(changes, comment), comment), nil
}

func (p *rolePlugin) remove(ctx context.Context, step *config.Step, cfg *config.RoleStep, data *roleEvaluation) (*model.StepResult, error) {
	if err := p.api.RemoveRole(ctx, data.current.ID); err != nil {
		return results.Failure(step.ID, err), plugin.NewExecutionError(step.ID, err)
	}

	changes := model.Changes{
		"old": map[string]any{"role_name": cfg.Role, "privilege_ids": data.current.Privileges},
	}
	comment := fmt.Sprintf("Role %s deleted.", cfg.Role)
	return results.Success(step.ID, model.Succeeded(changes, comment), comment), nil
}
