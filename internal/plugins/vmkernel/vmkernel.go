// Package vmkernelplugin reconciles vmkernel network adapters.
package vmkernelplugin

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

// API is the slice of the vSphere client the vmkernel reconciler needs.
type API interface {
	HostNames(ctx context.Context, names []string) ([]string, error)
	ListVirtualNics(ctx context.Context, host string) (map[string]vmware.VirtualNic, error)
	AddVirtualNic(ctx context.Context, host string, spec vmware.VirtualNicSpec) (string, error)
	UpdateVirtualNic(ctx context.Context, host, device string, spec vmware.VirtualNicSpec) error
	RemoveVirtualNic(ctx context.Context, host, device string) error
}

type vmkernelPlugin struct {
	api API
}

// New creates a new vmkernel adapter plugin backed by the given client.
func New(api API) plugin.Plugin {
	return &vmkernelPlugin{api: api}
}

var _ plugin.Plugin = (*vmkernelPlugin)(nil)

func (p *vmkernelPlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "vmkernel_adapter",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Manages vmkernel network adapters.",
	}
}

func (p *vmkernelPlugin) Schema() any {
	return config.VMKernelAdapterStep{}
}

// hostNic is the adapter as found on one host; found is false when the
// host has no matching device.
type hostNic struct {
	found   bool
	current vmware.VirtualNic
	drifted bool
}

type vmkernelEvaluation struct {
	hosts []string
	nics  map[string]hostNic
}

func desiredSpec(cfg *config.VMKernelAdapterStep) vmware.VirtualNicSpec {
	return vmware.VirtualNicSpec{
		PortGroup: cfg.PortGroup,
		MTU:       cfg.MTU,
		DHCP:      cfg.NetworkType != "static",
		IP:        cfg.IP,
		Netmask:   cfg.Netmask,
	}
}

// matchNic finds the adapter a step refers to: by device name when one is
// given, otherwise by port group.
func matchNic(nics map[string]vmware.VirtualNic, cfg *config.VMKernelAdapterStep) (vmware.VirtualNic, bool) {
	if cfg.Device != "" {
		nic, ok := nics[cfg.Device]
		return nic, ok
	}
	for _, nic := range nics {
		if nic.PortGroup == cfg.PortGroup {
			return nic, true
		}
	}
	return vmware.VirtualNic{}, false
}

func nicDrifted(current vmware.VirtualNic, spec vmware.VirtualNicSpec) bool {
	if spec.PortGroup != "" && current.PortGroup != spec.PortGroup {
		return true
	}
	if spec.MTU > 0 && current.MTU != spec.MTU {
		return true
	}
	if current.DHCP != spec.DHCP {
		return true
	}
	if !spec.DHCP && (current.IP != spec.IP || current.Netmask != spec.Netmask) {
		return true
	}
	return false
}

func (p *vmkernelPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error) {
	cfg := step.VMKernel
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("vmkernel adapter configuration missing"))
	}

	hosts, err := p.api.HostNames(ctx, step.Hosts)
	if err != nil {
		return nil, plugin.NewStateError(step.ID, err)
	}

	data := &vmkernelEvaluation{hosts: hosts, nics: make(map[string]hostNic, len(hosts))}
	spec := desiredSpec(cfg)

	anyFound, anyDrift, anyMissing := false, false, false
	for _, host := range hosts {
		nics, err := p.api.ListVirtualNics(ctx, host)
		if err != nil {
			return nil, plugin.NewStateError(step.ID, err)
		}
		current, found := matchNic(nics, cfg)
		entry := hostNic{found: found, current: current}
		if found {
			anyFound = true
			entry.drifted = nicDrifted(current, spec)
			if entry.drifted {
				anyDrift = true
			}
		} else {
			anyMissing = true
		}
		data.nics[host] = entry
	}

	label := cfg.Device
	if label == "" {
		label = cfg.PortGroup
	}

	currentNics := map[string]any{}
	desiredNics := map[string]any{}
	for host, entry := range data.nics {
		if entry.found {
			currentNics[host] = nicState(entry.current)
		}
		if cfg.Ensure != "absent" && (!entry.found || entry.drifted) {
			desiredNics[host] = desiredState(cfg)
		}
	}

	if cfg.Ensure == "absent" {
		// Removing an adapter that does not exist is an error, not a
		// no-op: the device name in the plan is wrong and silently
		// succeeding would hide it.
		if !anyFound {
			return &model.EvaluationResult{
				StepID:         step.ID,
				CurrentState:   model.StatusBlocked,
				RequiresAction: false,
				Message:        fmt.Sprintf("vmkernel adapter %s not found", cfg.Device),
				Reconciliation: model.Failed(fmt.Sprintf("VMkernel adapter %s is not present.", cfg.Device)),
				InternalData:   data,
			}, nil
		}
		return &model.EvaluationResult{
			StepID:         step.ID,
			CurrentState:   model.StatusDrifted,
			RequiresAction: true,
			Message:        fmt.Sprintf("vmkernel adapter %s will be removed", cfg.Device),
			Diff:           diff.RenderStates(currentNics, nil),
			Reconciliation: model.Preview(nil, fmt.Sprintf("VMkernel adapter %s will be removed.", cfg.Device)),
			InternalData:   data,
		}, nil
	}

	switch {
	case anyMissing:
		return &model.EvaluationResult{
			StepID:         step.ID,
			CurrentState:   model.StatusMissing,
			RequiresAction: true,
			Message:        fmt.Sprintf("vmkernel adapter %s will be created", label),
			Diff:           diff.RenderStates(currentNics, desiredNics),
			Reconciliation: model.Preview(nil, fmt.Sprintf("VMkernel adapter %s will be created.", label)),
			InternalData:   data,
		}, nil
	case anyDrift:
		return &model.EvaluationResult{
			StepID:         step.ID,
			CurrentState:   model.StatusDrifted,
			RequiresAction: true,
			Message:        fmt.Sprintf("vmkernel adapter %s will be updated", label),
			Diff:           diff.RenderStates(currentNics, desiredNics),
			Reconciliation: model.Preview(nil, fmt.Sprintf("VMkernel adapter %s will be updated.", label)),
			InternalData:   data,
		}, nil
	default:
		return &model.EvaluationResult{
			StepID:         step.ID,
			CurrentState:   model.StatusSatisfied,
			RequiresAction: false,
			Message:        fmt.Sprintf("vmkernel adapter %s matches desired state", label),
			Reconciliation: model.Succeeded(nil, fmt.Sprintf("VMkernel adapter %s is already in the desired state.", label)),
			InternalData:   data,
		}, nil
	}
}

func (p *vmkernelPlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, step *config.Step) (*model.StepResult, error) {
	cfg := step.VMKernel
	if cfg == nil {
		return nil, plugin.NewValidationError(step.ID, fmt.Errorf("vmkernel adapter configuration missing"))
	}

	data, ok := evalResult.InternalData.(*vmkernelEvaluation)
	if !ok {
		fresh, err := p.Evaluate(ctx, step)
		if err != nil {
			return nil, err
		}
		data = fresh.InternalData.(*vmkernelEvaluation)
	}

	if cfg.Ensure == "absent" {
		return p.remove(ctx, step, cfg, data)
	}
	return p.ensure(ctx, step, cfg, data)
}

func (p *vmkernelPlugin) ensure(ctx context.Context, step *config.Step, cfg *config.VMKernelAdapterStep, data *vmkernelEvaluation) (*model.StepResult, error) {
	spec := desiredSpec(cfg)
	changes := model.Changes{}

	for _, host := range data.hosts {
		entry := data.nics[host]
		switch {
		case !entry.found:
			device, err := p.api.AddVirtualNic(ctx, host, spec)
			if err != nil {
				return results.Failure(step.ID, err), plugin.NewExecutionError(step.ID, err)
			}
			changes[host] = map[string]any{
				"new": map[string]any{"name": device, "port_group": cfg.PortGroup},
			}
		case entry.drifted:
			if err := p.api.UpdateVirtualNic(ctx, host, entry.current.Device, spec); err != nil {
				return results.Failure(step.ID, err), plugin.NewExecutionError(step.ID, err)
			}
			changes[host] = map[string]any{
				"old": nicState(entry.current),
				"new": map[string]any{"name": entry.current.Device, "port_group": cfg.PortGroup, "mtu": cfg.MTU},
			}
		}
	}

	label := cfg.Device
	if label == "" {
		label = cfg.PortGroup
	}
	comment := fmt.Sprintf("VMkernel adapter %s configured on %d host(s).", label, len(changes))
	return results.Success(step.ID, model.Succeeded(changes, comment), comment), nil
}

func (p *vmkernelPlugin) remove(ctx context.Context, step *config.Step, cfg *config.VMKernelAdapterStep, data *vmkernelEvaluation) (*model.StepResult, error) {
	changes := model.Changes{}
	for _, host := range data.hosts {
		entry := data.nics[host]
		if !entry.found {
			continue
		}
		if err := p.api.RemoveVirtualNic(ctx, host, entry.current.Device); err != nil {
			return results.Failure(step.ID, err), plugin.NewExecutionError(step.ID, err)
		}
		changes[host] = map[string]any{"old": nicState(entry.current)}
	}

	comment := fmt.Sprintf("VMkernel adapter %s removed on %d host(s).", cfg.Device, len(changes))
	return results.Success(step.ID, model.Succeeded(changes, comment), comment), nil
}

func nicState(nic vmware.VirtualNic) map[string]any {
	state := map[string]any{"name": nic.Device, "port_group": nic.PortGroup, "mtu": nic.MTU}
	if !nic.DHCP {
		state["ip"] = nic.IP
		state["netmask"] = nic.Netmask
	}
	return state
}

func desiredState(cfg *config.VMKernelAdapterStep) map[string]any {
	state := map[string]any{"port_group": cfg.PortGroup, "mtu": cfg.MTU}
	if cfg.NetworkType == "static" {
		state["ip"] = cfg.IP
		state["netmask"] = cfg.Netmask
	}
	return state
}
