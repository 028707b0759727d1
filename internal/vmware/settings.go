package vmware

import (
	"context"

	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/soap"
	"github.com/vmware/govmomi/vim25/types"

	stateerrors "github.com/esxistate/esxistate/pkg/errors"
)

// AdvancedOptions returns the host's advanced option values, keyed by option
// key.
func (c *Client) AdvancedOptions(ctx context.Context, host string) (map[string]any, error) {
	hs, err := c.hostByName(ctx, host)
	if err != nil {
		return nil, stateerrors.NewRemoteOperationError("read advanced options", host, err)
	}

	om, err := hs.ConfigManager().OptionManager(ctx)
	if err != nil {
		return nil, stateerrors.NewRemoteOperationError("read advanced options", host, err)
	}

	var moOpt mo.OptionManager
	if err := c.pc.RetrieveOne(ctx, om.Reference(), []string{"setting"}, &moOpt); err != nil {
		return nil, stateerrors.NewRemoteOperationError("read advanced options", host, err)
	}

	options := make(map[string]any, len(moOpt.Setting))
	for _, base := range moOpt.Setting {
		ov := base.GetOptionValue()
		if ov == nil {
			continue
		}
		options[ov.Key] = ov.Value
	}
	return options, nil
}

// SetAdvancedOptions updates the given advanced option values in one call.
func (c *Client) SetAdvancedOptions(ctx context.Context, host string, options map[string]any) error {
	hs, err := c.hostByName(ctx, host)
	if err != nil {
		return stateerrors.NewRemoteOperationError("set advanced options", host, err)
	}

	om, err := hs.ConfigManager().OptionManager(ctx)
	if err != nil {
		return stateerrors.NewRemoteOperationError("set advanced options", host, err)
	}

	changed := make([]types.BaseOptionValue, 0, len(options))
	for key, value := range options {
		changed = append(changed, &types.OptionValue{Key: key, Value: value})
	}

	if err := om.Update(ctx, changed); err != nil {
		if soap.IsSoapFault(err) {
			if f, ok := soap.ToSoapFault(err).VimFault().(types.InvalidName); ok {
				return stateerrors.NewInvalidArgumentError(f.Name, "unknown advanced option key")
			}
		}
		return stateerrors.NewRemoteOperationError("set advanced options", host, err)
	}
	return nil
}

// NTPServers returns the host's configured NTP server list.
func (c *Client) NTPServers(ctx context.Context, host string) ([]string, error) {
	hs, err := c.hostByName(ctx, host)
	if err != nil {
		return nil, stateerrors.NewRemoteOperationError("read ntp config", host, err)
	}

	var moHost mo.HostSystem
	if err := c.pc.RetrieveOne(ctx, hs.Reference(), []string{"config.dateTimeInfo"}, &moHost); err != nil {
		return nil, stateerrors.NewRemoteOperationError("read ntp config", host, err)
	}

	if moHost.Config == nil || moHost.Config.DateTimeInfo == nil {
		return nil, nil
	}
	return append([]string(nil), moHost.Config.DateTimeInfo.NtpConfig.Server...), nil
}

// SetNTPServers replaces the host's NTP server list.
func (c *Client) SetNTPServers(ctx context.Context, host string, servers []string) error {
	hs, err := c.hostByName(ctx, host)
	if err != nil {
		return stateerrors.NewRemoteOperationError("set ntp config", host, err)
	}

	dts, err := hs.ConfigManager().DateTimeSystem(ctx)
	if err != nil {
		return stateerrors.NewRemoteOperationError("set ntp config", host, err)
	}

	cfg := types.HostDateTimeConfig{
		NtpConfig: &types.HostNtpConfig{Server: servers},
	}
	if err := dts.UpdateConfig(ctx, cfg); err != nil {
		return stateerrors.NewRemoteOperationError("set ntp config", host, err)
	}
	return nil
}

// RestartService restarts a host service (ntpd, sshd, ...).
func (c *Client) RestartService(ctx context.Context, host, service string) error {
	hs, err := c.hostByName(ctx, host)
	if err != nil {
		return stateerrors.NewRemoteOperationError("restart service", host, err)
	}

	ss, err := hs.ConfigManager().ServiceSystem(ctx)
	if err != nil {
		return stateerrors.NewRemoteOperationError("restart service", host, err)
	}

	if err := ss.Restart(ctx, service); err != nil {
		return stateerrors.NewRemoteOperationError("restart service", host, err)
	}
	return nil
}
