package vmware

import (
	"context"

	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"

	stateerrors "github.com/esxistate/esxistate/pkg/errors"
)

// VirtualNic is a vmkernel network adapter on one host.
type VirtualNic struct {
	Device    string
	PortGroup string
	MTU       int
	DHCP      bool
	IP        string
	Netmask   string
}

// VirtualNicSpec is the desired shape of a vmkernel adapter.
type VirtualNicSpec struct {
	PortGroup string
	MTU       int
	DHCP      bool
	IP        string
	Netmask   string
}

func (s VirtualNicSpec) toHostSpec() types.HostVirtualNicSpec {
	spec := types.HostVirtualNicSpec{
		Ip: &types.HostIpConfig{
			Dhcp:       s.DHCP,
			IpAddress:  s.IP,
			SubnetMask: s.Netmask,
		},
	}
	if s.MTU > 0 {
		spec.Mtu = int32(s.MTU)
	}
	return spec
}

// ListVirtualNics returns the vmkernel adapters of a host, keyed by device
// name (vmk0, vmk1, ...).
func (c *Client) ListVirtualNics(ctx context.Context, host string) (map[string]VirtualNic, error) {
	hs, err := c.hostByName(ctx, host)
	if err != nil {
		return nil, stateerrors.NewRemoteOperationError("list vmkernel adapters", host, err)
	}

	var moHost mo.HostSystem
	if err := c.pc.RetrieveOne(ctx, hs.Reference(), []string{"config.network.vnic"}, &moHost); err != nil {
		return nil, stateerrors.NewRemoteOperationError("list vmkernel adapters", host, err)
	}

	nics := make(map[string]VirtualNic)
	if moHost.Config == nil || moHost.Config.Network == nil {
		return nics, nil
	}
	for _, vnic := range moHost.Config.Network.Vnic {
		n := VirtualNic{
			Device:    vnic.Device,
			PortGroup: vnic.Portgroup,
			MTU:       int(vnic.Spec.Mtu),
		}
		if vnic.Spec.Ip != nil {
			n.DHCP = vnic.Spec.Ip.Dhcp
			n.IP = vnic.Spec.Ip.IpAddress
			n.Netmask = vnic.Spec.Ip.SubnetMask
		}
		nics[vnic.Device] = n
	}
	return nics, nil
}

// AddVirtualNic creates a vmkernel adapter on the named port group and
// returns the assigned device name.
func (c *Client) AddVirtualNic(ctx context.Context, host string, spec VirtualNicSpec) (string, error) {
	hs, err := c.hostByName(ctx, host)
	if err != nil {
		return "", stateerrors.NewRemoteOperationError("create vmkernel adapter", host, err)
	}

	ns, err := hs.ConfigManager().NetworkSystem(ctx)
	if err != nil {
		return "", stateerrors.NewRemoteOperationError("create vmkernel adapter", host, err)
	}

	device, err := ns.AddVirtualNic(ctx, spec.PortGroup, spec.toHostSpec())
	if err != nil {
		return "", stateerrors.NewRemoteOperationError("create vmkernel adapter", host, err)
	}
	return device, nil
}

// UpdateVirtualNic reshapes an existing vmkernel adapter.
func (c *Client) UpdateVirtualNic(ctx context.Context, host, device string, spec VirtualNicSpec) error {
	hs, err := c.hostByName(ctx, host)
	if err != nil {
		return stateerrors.NewRemoteOperationError("update vmkernel adapter", host, err)
	}

	ns, err := hs.ConfigManager().NetworkSystem(ctx)
	if err != nil {
		return stateerrors.NewRemoteOperationError("update vmkernel adapter", host, err)
	}

	if err := ns.UpdateVirtualNic(ctx, device, spec.toHostSpec()); err != nil {
		return stateerrors.NewRemoteOperationError("update vmkernel adapter", host, err)
	}
	return nil
}

// RemoveVirtualNic deletes a vmkernel adapter by device name.
func (c *Client) RemoveVirtualNic(ctx context.Context, host, device string) error {
	hs, err := c.hostByName(ctx, host)
	if err != nil {
		return stateerrors.NewRemoteOperationError("delete vmkernel adapter", host, err)
	}

	ns, err := hs.ConfigManager().NetworkSystem(ctx)
	if err != nil {
		return stateerrors.NewRemoteOperationError("delete vmkernel adapter", host, err)
	}

	if err := ns.RemoveVirtualNic(ctx, device); err != nil {
		return stateerrors.NewRemoteOperationError("delete vmkernel adapter", host, err)
	}
	return nil
}
