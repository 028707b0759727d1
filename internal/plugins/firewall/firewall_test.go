package firewallplugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/model"
	"github.com/esxistate/esxistate/internal/vmware"
)

type fakeAPI struct {
	rulesets map[string]map[string]vmware.FirewallRuleset
	setErr   error
	set      []string
}

func (f *fakeAPI) HostNames(ctx context.Context, names []string) ([]string, error) {
	if len(names) > 0 {
		return names, nil
	}
	hosts := make([]string, 0, len(f.rulesets))
	for host := range f.rulesets {
		hosts = append(hosts, host)
	}
	return hosts, nil
}

func (f *fakeAPI) ListFirewallRulesets(ctx context.Context, host string) (map[string]vmware.FirewallRuleset, error) {
	return f.rulesets[host], nil
}

func (f *fakeAPI) SetFirewallRuleset(ctx context.Context, host, key string, enabled bool) error {
	if f.setErr != nil {
		return f.setErr
	}
	rs := f.rulesets[host][key]
	rs.Enabled = enabled
	f.rulesets[host][key] = rs
	f.set = append(f.set, host)
	return nil
}

func firewallStep(ruleset string, enabled bool) *config.Step {
	return &config.Step{
		ID:       "firewall_state",
		Type:     "firewall_ruleset",
		Firewall: &config.FirewallRulesetStep{Ruleset: ruleset, Enabled: enabled},
	}
}

func singleHost(ruleset string, enabled bool) *fakeAPI {
	return &fakeAPI{rulesets: map[string]map[string]vmware.FirewallRuleset{
		"esx01.lab": {ruleset: {Key: ruleset, Enabled: enabled}},
	}}
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

func TestFirewallEnableRuleset(t *testing.T) {
	t.Parallel()

	api := singleHost("sshServer", false)

	res := reconcile(t, api, firewallStep("sshServer", true))

	require.Equal(t, model.OutcomeSuccess, res.Reconciliation.Outcome)
	require.True(t, api.rulesets["esx01.lab"]["sshServer"].Enabled)
	hostChanges := res.Reconciliation.Changes["esx01.lab"].(map[string]any)
	rs := hostChanges["sshServer"].(map[string]any)
	require.Equal(t, true, rs["new"])
}

func TestFirewallIsIdempotent(t *testing.T) {
	t.Parallel()

	api := singleHost("sshServer", true)

	res := reconcile(t, api, firewallStep("sshServer", true))

	require.Equal(t, model.OutcomeSuccess, res.Reconciliation.Outcome)
	require.Empty(t, res.Reconciliation.Changes)
	require.Empty(t, api.set)
}

func TestFirewallUnknownRulesetFails(t *testing.T) {
	t.Parallel()

	api := singleHost("sshServer", true)
	p := New(api)

	eval, err := p.Evaluate(context.Background(), firewallStep("noSuchRule", true))
	require.NoError(t, err)

	require.False(t, eval.RequiresAction)
	require.Equal(t, model.StatusBlocked, eval.CurrentState)
	require.Equal(t, model.OutcomeFailed, eval.Reconciliation.Outcome)
	require.Contains(t, eval.Reconciliation.Comment, "noSuchRule does not exist")
}

func TestFirewallSetErrorPropagates(t *testing.T) {
	t.Parallel()

	api := singleHost("sshServer", false)
	api.setErr = errors.New("firewall error")

	res := reconcile(t, api, firewallStep("sshServer", true))

	require.Equal(t, model.OutcomeFailed, res.Reconciliation.Outcome)
	require.Empty(t, res.Reconciliation.Changes)
	require.Contains(t, res.Reconciliation.Comment, "firewall error")
}
