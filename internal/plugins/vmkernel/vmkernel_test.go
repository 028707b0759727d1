package vmkernelplugin

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/model"
	"github.com/esxistate/esxistate/internal/vmware"
)

type fakeAPI struct {
	hosts []string
	nics  map[string]map[string]vmware.VirtualNic
	next  int

	addErr    error
	updateErr error
	removeErr error
}

func (f *fakeAPI) HostNames(ctx context.Context, names []string) ([]string, error) {
	if len(names) > 0 {
		return names, nil
	}
	return f.hosts, nil
}

func (f *fakeAPI) ListVirtualNics(ctx context.Context, host string) (map[string]vmware.VirtualNic, error) {
	return f.nics[host], nil
}

func (f *fakeAPI) AddVirtualNic(ctx context.Context, host string, spec vmware.VirtualNicSpec) (string, error) {
	if f.addErr != nil {
		return "", f.addErr
	}
	f.next++
	device := fmt.Sprintf("vmk%d", f.next)
	if f.nics[host] == nil {
		f.nics[host] = map[string]vmware.VirtualNic{}
	}
	f.nics[host][device] = vmware.VirtualNic{
		Device: device, PortGroup: spec.PortGroup, MTU: spec.MTU,
		DHCP: spec.DHCP, IP: spec.IP, Netmask: spec.Netmask,
	}
	return device, nil
}

func (f *fakeAPI) UpdateVirtualNic(ctx context.Context, host, device string, spec vmware.VirtualNicSpec) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.nics[host][device] = vmware.VirtualNic{
		Device: device, PortGroup: spec.PortGroup, MTU: spec.MTU,
		DHCP: spec.DHCP, IP: spec.IP, Netmask: spec.Netmask,
	}
	return nil
}

func (f *fakeAPI) RemoveVirtualNic(ctx context.Context, host, device string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.nics[host], device)
	return nil
}

func newFake() *fakeAPI {
	return &fakeAPI{
		hosts: []string{"esx01.lab"},
		nics:  map[string]map[string]vmware.VirtualNic{"esx01.lab": {}},
	}
}

func presentStep(device, portGroup string, mtu int) *config.Step {
	return &config.Step{
		ID:   "vmk_state",
		Type: "vmkernel_adapter",
		VMKernel: &config.VMKernelAdapterStep{
			Ensure: "present", Device: device, PortGroup: portGroup, MTU: mtu, NetworkType: "dhcp",
		},
	}
}

func absentStep(device string) *config.Step {
	return &config.Step{
		ID:       "vmk_state",
		Type:     "vmkernel_adapter",
		VMKernel: &config.VMKernelAdapterStep{Ensure: "absent", Device: device},
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

func TestVMKernelCreateReportsAssignedDevice(t *testing.T) {
	t.Parallel()

	api := newFake()
	res := reconcile(t, api, presentStep("", "Management Network", 1500))

	require.Equal(t, model.OutcomeSuccess, res.Reconciliation.Outcome)
	hostChanges := res.Reconciliation.Changes["esx01.lab"].(map[string]any)
	created := hostChanges["new"].(map[string]any)
	require.Equal(t, "vmk1", created["name"])
	require.Equal(t, "Management Network", created["port_group"])
}

func TestVMKernelPresentIsIdempotent(t *testing.T) {
	t.Parallel()

	api := newFake()
	step := presentStep("", "Management Network", 1500)

	res := reconcile(t, api, step)
	require.NotEmpty(t, res.Reconciliation.Changes)

	res = reconcile(t, api, step)
	require.Equal(t, model.OutcomeSuccess, res.Reconciliation.Outcome)
	require.Empty(t, res.Reconciliation.Changes)
	require.Contains(t, res.Reconciliation.Comment, "already in the desired state")
}

func TestVMKernelUpdateOnMTUDrift(t *testing.T) {
	t.Parallel()

	api := newFake()
	api.nics["esx01.lab"]["vmk1"] = vmware.VirtualNic{
		Device: "vmk1", PortGroup: "Management Network", MTU: 1500, DHCP: true,
	}

	res := reconcile(t, api, presentStep("vmk1", "Management Network", 9000))

	require.Equal(t, model.OutcomeSuccess, res.Reconciliation.Outcome)
	hostChanges := res.Reconciliation.Changes["esx01.lab"].(map[string]any)
	require.Equal(t, 1500, hostChanges["old"].(map[string]any)["mtu"])
	require.Equal(t, 9000, hostChanges["new"].(map[string]any)["mtu"])
	require.Equal(t, 9000, api.nics["esx01.lab"]["vmk1"].MTU)
}

func TestVMKernelAbsentRemovesAdapter(t *testing.T) {
	t.Parallel()

	api := newFake()
	api.nics["esx01.lab"]["vmk1"] = vmware.VirtualNic{Device: "vmk1", PortGroup: "vMotion", DHCP: true}

	res := reconcile(t, api, absentStep("vmk1"))

	require.Equal(t, model.OutcomeSuccess, res.Reconciliation.Outcome)
	hostChanges := res.Reconciliation.Changes["esx01.lab"].(map[string]any)
	require.Equal(t, "vmk1", hostChanges["old"].(map[string]any)["name"])
	require.Empty(t, api.nics["esx01.lab"])
}

func TestVMKernelAbsentMissingIsAFailure(t *testing.T) {
	t.Parallel()

	api := newFake()
	p := New(api)

	eval, err := p.Evaluate(context.Background(), absentStep("vmk9"))
	require.NoError(t, err)

	require.False(t, eval.RequiresAction)
	require.Equal(t, model.StatusBlocked, eval.CurrentState)
	require.Equal(t, model.OutcomeFailed, eval.Reconciliation.Outcome)
	require.Empty(t, eval.Reconciliation.Changes)
	require.Contains(t, eval.Reconciliation.Comment, "vmk9 is not present")
}

func TestVMKernelAddErrorPropagates(t *testing.T) {
	t.Parallel()

	api := newFake()
	api.addErr = errors.New("add nic error")

	res := reconcile(t, api, presentStep("", "Management Network", 1500))

	require.Equal(t, model.OutcomeFailed, res.Reconciliation.Outcome)
	require.Empty(t, res.Reconciliation.Changes)
	require.Contains(t, res.Reconciliation.Comment, "add nic error")
}
