package maintenanceplugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/model"
)

type fakeAPI struct {
	modes map[string]bool

	enterErr error
	exitErr  error

	entered []string
	exited  []string
}

func (f *fakeAPI) HostNames(ctx context.Context, names []string) ([]string, error) {
	if len(names) > 0 {
		return names, nil
	}
	hosts := make([]string, 0, len(f.modes))
	for host := range f.modes {
		hosts = append(hosts, host)
	}
	return hosts, nil
}

func (f *fakeAPI) InMaintenanceMode(ctx context.Context, host string) (bool, error) {
	return f.modes[host], nil
}

func (f *fakeAPI) EnterMaintenanceMode(ctx context.Context, host string, timeout int, evacuate bool) error {
	if f.enterErr != nil {
		return f.enterErr
	}
	f.modes[host] = true
	f.entered = append(f.entered, host)
	return nil
}

func (f *fakeAPI) ExitMaintenanceMode(ctx context.Context, host string, timeout int) error {
	if f.exitErr != nil {
		return f.exitErr
	}
	f.modes[host] = false
	f.exited = append(f.exited, host)
	return nil
}

func maintenanceStep(enter bool) *config.Step {
	return &config.Step{
		ID:          "maintenance_state",
		Type:        "maintenance_mode",
		Maintenance: &config.MaintenanceModeStep{Enter: enter, Timeout: 120},
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

func TestMaintenanceEnterOnlyTouchesDriftedHosts(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{modes: map[string]bool{"esx01.lab": false, "esx02.lab": true}}

	res := reconcile(t, api, maintenanceStep(true))

	require.Equal(t, model.OutcomeSuccess, res.Reconciliation.Outcome)
	require.Equal(t, []string{"esx01.lab"}, api.entered)
	require.Len(t, res.Reconciliation.Changes, 1)
	hostChanges := res.Reconciliation.Changes["esx01.lab"].(map[string]any)
	mode := hostChanges["maintenance_mode"].(map[string]any)
	require.Equal(t, false, mode["old"])
	require.Equal(t, true, mode["new"])
}

func TestMaintenanceIsIdempotent(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{modes: map[string]bool{"esx01.lab": true}}

	res := reconcile(t, api, maintenanceStep(true))

	require.Equal(t, model.OutcomeSuccess, res.Reconciliation.Outcome)
	require.Empty(t, res.Reconciliation.Changes)
	require.Contains(t, res.Reconciliation.Comment, "already in the desired state")
	require.Empty(t, api.entered)
}

func TestMaintenanceExit(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{modes: map[string]bool{"esx01.lab": true}}

	res := reconcile(t, api, maintenanceStep(false))

	require.Equal(t, model.OutcomeSuccess, res.Reconciliation.Outcome)
	require.Equal(t, []string{"esx01.lab"}, api.exited)
	require.Contains(t, res.Reconciliation.Comment, "exited on 1 host(s)")
}

func TestMaintenanceEnterErrorPropagates(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{modes: map[string]bool{"esx01.lab": false}}
	api.enterErr = errors.New("enter maintenance error")

	res := reconcile(t, api, maintenanceStep(true))

	require.Equal(t, model.OutcomeFailed, res.Reconciliation.Outcome)
	require.Empty(t, res.Reconciliation.Changes)
	require.Contains(t, res.Reconciliation.Comment, "enter maintenance error")
}

func TestMaintenanceDryRunPreviewDoesNotMutate(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{modes: map[string]bool{"esx01.lab": false}}
	p := New(api)

	eval, err := p.Evaluate(context.Background(), maintenanceStep(true))
	require.NoError(t, err)

	require.True(t, eval.RequiresAction)
	require.Equal(t, model.OutcomePreview, eval.Reconciliation.Outcome)
	require.Contains(t, eval.Reconciliation.Comment, "will be entered on 1 host(s)")
	require.Empty(t, api.entered)
}
