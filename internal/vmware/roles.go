package vmware

import (
	"context"

	"github.com/vmware/govmomi/object"

	stateerrors "github.com/esxistate/esxistate/pkg/errors"
)

// Role is an authorization role with its privilege set.
type Role struct {
	ID         int32
	Name       string
	Privileges []string
	System     bool
}

// ListRoles returns every authorization role, keyed by role name.
func (c *Client) ListRoles(ctx context.Context) (map[string]Role, error) {
	am := object.NewAuthorizationManager(c.vim)

	list, err := am.RoleList(ctx)
	if err != nil {
		return nil, stateerrors.NewRemoteOperationError("list roles", "", err)
	}

	roles := make(map[string]Role, len(list))
	for _, r := range list {
		roles[r.Name] = Role{
			ID:         r.RoleId,
			Name:       r.Name,
			Privileges: append([]string(nil), r.Privilege...),
			System:     r.System,
		}
	}
	return roles, nil
}

// AddRole creates a role carrying the given privilege IDs.
func (c *Client) AddRole(ctx context.Context, name string, privilegeIDs []string) error {
	am := object.NewAuthorizationManager(c.vim)

	if _, err := am.AddRole(ctx, name, privilegeIDs); err != nil {
		return stateerrors.NewRemoteOperationError("add role", "", err)
	}
	return nil
}

// UpdateRole replaces a role's privilege set.
func (c *Client) UpdateRole(ctx context.Context, id int32, name string, privilegeIDs []string) error {
	am := object.NewAuthorizationManager(c.vim)

	if err := am.UpdateRole(ctx, id, name, privilegeIDs); err != nil {
		return stateerrors.NewRemoteOperationError("update role", "", err)
	}
	return nil
}

// RemoveRole deletes a role. The removal fails when the role is still in use.
func (c *Client) RemoveRole(ctx context.Context, id int32) error {
	am := object.NewAuthorizationManager(c.vim)

	if err := am.RemoveRole(ctx, id, true); err != nil {
		return stateerrors.NewRemoteOperationError("remove role", "", err)
	}
	return nil
}
