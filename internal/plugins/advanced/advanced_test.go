package advancedplugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/model"
)

type fakeAPI struct {
	options map[string]map[string]any
	setErr  error
	applied map[string]map[string]any
}

func (f *fakeAPI) HostNames(ctx context.Context, names []string) ([]string, error) {
	if len(names) > 0 {
		return names, nil
	}
	hosts := make([]string, 0, len(f.options))
	for host := range f.options {
		hosts = append(hosts, host)
	}
	return hosts, nil
}

func (f *fakeAPI) AdvancedOptions(ctx context.Context, host string) (map[string]any, error) {
	return f.options[host], nil
}

func (f *fakeAPI) SetAdvancedOptions(ctx context.Context, host string, options map[string]any) error {
	if f.setErr != nil {
		return f.setErr
	}
	if f.applied == nil {
		f.applied = map[string]map[string]any{}
	}
	f.applied[host] = options
	for key, value := range options {
		f.options[host][key] = value
	}
	return nil
}

func advancedStep(options map[string]any) *config.Step {
	return &config.Step{
		ID:       "advanced_state",
		Type:     "advanced_settings",
		Advanced: &config.AdvancedSettingsStep{Options: options},
	}
}

func reconcile(t *testing.T, api *fakeAPI, step *config.Step) *model.StepResult {
	t.Helper()

	p := New(api)
	eval, err := p.Evaluate(context.Background(), step)
	require.NoError(t, err)
	if !eval.RequiresAction {
		return &model.StepResult{StepID: step.ID, Status: model.StatusSkipped, Reconciliation: eval.Reconciliation}
	}
	res, _ := p.Apply(context.Background(), eval, step)
	require.NotNil(t, res)
	return res
}

func TestAdvancedUpdatesOnlyDriftedKeys(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{options: map[string]map[string]any{
		"esx01.lab": {
			"Annotations.WelcomeMessage": "",
			"UserVars.SuppressShellWarning": int64(0),
		},
	}}

	res := reconcile(t, api, advancedStep(map[string]any{
		"Annotations.WelcomeMessage":    "",
		"UserVars.SuppressShellWarning": 1,
	}))

	require.Equal(t, model.OutcomeSuccess, res.Reconciliation.Outcome)
	require.Len(t, api.applied["esx01.lab"], 1, "unchanged keys stay off the wire")
	hostChanges := res.Reconciliation.Changes["esx01.lab"].(map[string]any)
	change := hostChanges["UserVars.SuppressShellWarning"].(map[string]any)
	require.Equal(t, int64(0), change["old"])
	require.Equal(t, 1, change["new"])
}

func TestAdvancedIsIdempotent(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{options: map[string]map[string]any{
		"esx01.lab": {"UserVars.SuppressShellWarning": int64(1)},
	}}

	res := reconcile(t, api, advancedStep(map[string]any{"UserVars.SuppressShellWarning": 1}))

	require.Equal(t, model.OutcomeSuccess, res.Reconciliation.Outcome)
	require.Empty(t, res.Reconciliation.Changes)
	require.Contains(t, res.Reconciliation.Comment, "already in the desired state")
	require.Empty(t, api.applied)
}

func TestAdvancedSetErrorPropagates(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{options: map[string]map[string]any{
		"esx01.lab": {"UserVars.SuppressShellWarning": int64(0)},
	}}
	api.setErr = errors.New("option update error")

	res := reconcile(t, api, advancedStep(map[string]any{"UserVars.SuppressShellWarning": 1}))

	require.Equal(t, model.OutcomeFailed, res.Reconciliation.Outcome)
	require.Empty(t, res.Reconciliation.Changes)
	require.Contains(t, res.Reconciliation.Comment, "option update error")
}

func TestAdvancedDryRunPreviewNamesKeys(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{options: map[string]map[string]any{
		"esx01.lab": {"UserVars.SuppressShellWarning": int64(0)},
	}}
	p := New(api)

	eval, err := p.Evaluate(context.Background(), advancedStep(map[string]any{"UserVars.SuppressShellWarning": 1}))
	require.NoError(t, err)

	require.True(t, eval.RequiresAction)
	require.Equal(t, model.OutcomePreview, eval.Reconciliation.Outcome)
	require.Contains(t, eval.Reconciliation.Comment, "UserVars.SuppressShellWarning")
	require.Empty(t, api.applied)
}
