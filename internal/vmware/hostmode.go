package vmware

import (
	"context"

	"github.com/vmware/govmomi/vim25/methods"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"

	stateerrors "github.com/esxistate/esxistate/pkg/errors"
)

// InMaintenanceMode reports whether the host is currently in maintenance mode.
func (c *Client) InMaintenanceMode(ctx context.Context, host string) (bool, error) {
	hs, err := c.hostByName(ctx, host)
	if err != nil {
		return false, stateerrors.NewRemoteOperationError("read maintenance mode", host, err)
	}

	var moHost mo.HostSystem
	if err := c.pc.RetrieveOne(ctx, hs.Reference(), []string{"runtime.inMaintenanceMode"}, &moHost); err != nil {
		return false, stateerrors.NewRemoteOperationError("read maintenance mode", host, err)
	}
	return moHost.Runtime.InMaintenanceMode, nil
}

// EnterMaintenanceMode puts the host into maintenance mode, blocking until
// the task completes. Timeout is in seconds and handed to the endpoint
// unchanged; zero means no server-side timeout.
func (c *Client) EnterMaintenanceMode(ctx context.Context, host string, timeout int, evacuate bool) error {
	hs, err := c.hostByName(ctx, host)
	if err != nil {
		return stateerrors.NewRemoteOperationError("enter maintenance mode", host, err)
	}

	task, err := hs.EnterMaintenanceMode(ctx, int32(timeout), evacuate, &types.HostMaintenanceSpec{})
	if err != nil {
		return stateerrors.NewRemoteOperationError("enter maintenance mode", host, err)
	}
	if err := task.Wait(ctx); err != nil {
		return stateerrors.NewRemoteOperationError("enter maintenance mode", host, err)
	}
	return nil
}

// ExitMaintenanceMode takes the host out of maintenance mode, blocking until
// the task completes.
func (c *Client) ExitMaintenanceMode(ctx context.Context, host string, timeout int) error {
	hs, err := c.hostByName(ctx, host)
	if err != nil {
		return stateerrors.NewRemoteOperationError("exit maintenance mode", host, err)
	}

	task, err := hs.ExitMaintenanceMode(ctx, int32(timeout))
	if err != nil {
		return stateerrors.NewRemoteOperationError("exit maintenance mode", host, err)
	}
	if err := task.Wait(ctx); err != nil {
		return stateerrors.NewRemoteOperationError("exit maintenance mode", host, err)
	}
	return nil
}

// LockdownEnabled reports whether host lockdown mode is active.
func (c *Client) LockdownEnabled(ctx context.Context, host string) (bool, error) {
	hs, err := c.hostByName(ctx, host)
	if err != nil {
		return false, stateerrors.NewRemoteOperationError("read lockdown mode", host, err)
	}

	var moHost mo.HostSystem
	if err := c.pc.RetrieveOne(ctx, hs.Reference(), []string{"config.lockdownMode"}, &moHost); err != nil {
		return false, stateerrors.NewRemoteOperationError("read lockdown mode", host, err)
	}
	if moHost.Config == nil {
		return false, nil
	}
	return moHost.Config.LockdownMode != types.HostLockdownModeLockdownDisabled, nil
}

// SetLockdown enables or disables lockdown mode on the host.
func (c *Client) SetLockdown(ctx context.Context, host string, enabled bool) error {
	hs, err := c.hostByName(ctx, host)
	if err != nil {
		return stateerrors.NewRemoteOperationError("set lockdown mode", host, err)
	}

	if enabled {
		req := types.EnterLockdownMode{This: hs.Reference()}
		if _, err := methods.EnterLockdownMode(ctx, c.vim, &req); err != nil {
			return stateerrors.NewRemoteOperationError("enable lockdown mode", host, err)
		}
		return nil
	}

	req := types.ExitLockdownMode{This: hs.Reference()}
	if _, err := methods.ExitLockdownMode(ctx, c.vim, &req); err != nil {
		return stateerrors.NewRemoteOperationError("disable lockdown mode", host, err)
	}
	return nil
}
