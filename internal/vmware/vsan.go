package vmware

import (
	"context"

	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"

	stateerrors "github.com/esxistate/esxistate/pkg/errors"
)

// VsanEnabled reports whether the host participates in VSAN.
func (c *Client) VsanEnabled(ctx context.Context, host string) (bool, error) {
	hs, err := c.hostByName(ctx, host)
	if err != nil {
		return false, stateerrors.NewRemoteOperationError("read vsan config", host, err)
	}

	var moHost mo.HostSystem
	if err := c.pc.RetrieveOne(ctx, hs.Reference(), []string{"config.vsanHostConfig"}, &moHost); err != nil {
		return false, stateerrors.NewRemoteOperationError("read vsan config", host, err)
	}

	if moHost.Config == nil || moHost.Config.VsanHostConfig == nil || moHost.Config.VsanHostConfig.Enabled == nil {
		return false, nil
	}
	return *moHost.Config.VsanHostConfig.Enabled, nil
}

// SetVsanEnabled toggles VSAN membership for the host, blocking until the
// update task completes. When addDisks is set the host also claims its
// eligible local disks for the VSAN datastore.
func (c *Client) SetVsanEnabled(ctx context.Context, host string, enabled, addDisks bool) error {
	hs, err := c.hostByName(ctx, host)
	if err != nil {
		return stateerrors.NewRemoteOperationError("set vsan config", host, err)
	}

	vs, err := hs.ConfigManager().VsanSystem(ctx)
	if err != nil {
		return stateerrors.NewRemoteOperationError("set vsan config", host, err)
	}

	cfg := types.VsanHostConfigInfo{
		Enabled: types.NewBool(enabled),
	}
	if enabled {
		cfg.StorageInfo = &types.VsanHostConfigInfoStorageInfo{
			AutoClaimStorage: types.NewBool(addDisks),
		}
	}

	task, err := vs.Update(ctx, cfg)
	if err != nil {
		return stateerrors.NewRemoteOperationError("set vsan config", host, err)
	}
	if err := task.Wait(ctx); err != nil {
		return stateerrors.NewRemoteOperationError("set vsan config", host, err)
	}
	return nil
}
