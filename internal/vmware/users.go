package vmware

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vmware/govmomi/vim25/methods"
	"github.com/vmware/govmomi/vim25/soap"
	"github.com/vmware/govmomi/vim25/types"

	stateerrors "github.com/esxistate/esxistate/pkg/errors"
)

// User is a local account on the endpoint.
type User struct {
	Name        string
	Description string
}

// UserSpec is the desired shape of a local account.
type UserSpec struct {
	Name        string
	Password    string
	Description string
}

// ListUsers returns the local accounts known to the endpoint's user
// directory, keyed by account name.
func (c *Client) ListUsers(ctx context.Context) (map[string]User, error) {
	ud := c.vim.ServiceContent.UserDirectory
	if ud == nil {
		return nil, stateerrors.NewRemoteOperationError("list users", "",
			errors.New("endpoint does not expose a user directory"))
	}

	req := types.RetrieveUserGroups{
		This:       *ud,
		SearchStr:  "",
		ExactMatch: false,
		FindUsers:  true,
		FindGroups: false,
	}

	res, err := methods.RetrieveUserGroups(ctx, c.vim, &req)
	if err != nil {
		return nil, stateerrors.NewRemoteOperationError("list users", "", err)
	}

	users := make(map[string]User, len(res.Returnval))
	for _, base := range res.Returnval {
		result := base.GetUserSearchResult()
		if result == nil {
			continue
		}
		users[result.Principal] = User{Name: result.Principal, Description: result.FullName}
	}
	return users, nil
}

func (c *Client) accountManager() (*types.ManagedObjectReference, error) {
	am := c.vim.ServiceContent.AccountManager
	if am == nil {
		// vCenter does not proxy host-local account management; a direct
		// host connection is required for user operations.
		return nil, errors.New("endpoint does not expose a local account manager")
	}
	return am, nil
}

// AddUser creates a local account.
func (c *Client) AddUser(ctx context.Context, host string, spec UserSpec) error {
	am, err := c.accountManager()
	if err != nil {
		return stateerrors.NewRemoteOperationError("add user", host, err)
	}

	req := types.CreateUser{
		This: *am,
		User: &types.HostAccountSpec{
			Id:          spec.Name,
			Password:    spec.Password,
			Description: spec.Description,
		},
	}
	if _, err := methods.CreateUser(ctx, c.vim, &req); err != nil {
		return stateerrors.NewRemoteOperationError("add user", host, err)
	}
	return nil
}

// UpdateUser reshapes an existing local account.
func (c *Client) UpdateUser(ctx context.Context, host string, spec UserSpec) error {
	am, err := c.accountManager()
	if err != nil {
		return stateerrors.NewRemoteOperationError("update user", host, err)
	}

	req := types.UpdateUser{
		This: *am,
		User: &types.HostAccountSpec{
			Id:          spec.Name,
			Password:    spec.Password,
			Description: spec.Description,
		},
	}
	if _, err := methods.UpdateUser(ctx, c.vim, &req); err != nil {
		return stateerrors.NewRemoteOperationError("update user", host, err)
	}
	return nil
}

// RemoveUser deletes a local account.
func (c *Client) RemoveUser(ctx context.Context, host, name string) error {
	am, err := c.accountManager()
	if err != nil {
		return stateerrors.NewRemoteOperationError("remove user", host, err)
	}

	req := types.RemoveUser{
		This:     *am,
		UserName: name,
	}
	if _, err := methods.RemoveUser(ctx, c.vim, &req); err != nil {
		if soap.IsSoapFault(err) {
			if _, ok := soap.ToSoapFault(err).VimFault().(types.UserNotFound); ok {
				return stateerrors.NewNotFoundError("user", name)
			}
		}
		return stateerrors.NewRemoteOperationError("remove user", host, err)
	}
	return nil
}

// UpdatePassword sets a new password on a local account, leaving the other
// account attributes untouched.
func (c *Client) UpdatePassword(ctx context.Context, host, name, password string) error {
	am, err := c.accountManager()
	if err != nil {
		return stateerrors.NewRemoteOperationError("update password", host, err)
	}

	req := types.UpdateUser{
		This: *am,
		User: &types.HostAccountSpec{
			Id:       name,
			Password: password,
		},
	}
	if _, err := methods.UpdateUser(ctx, c.vim, &req); err != nil {
		return stateerrors.NewRemoteOperationError("update password", host, err)
	}
	return nil
}
