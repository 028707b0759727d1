package vmware

import (
	"context"

	"github.com/vmware/govmomi/license"

	stateerrors "github.com/esxistate/esxistate/pkg/errors"
)

// License is one entry in the endpoint's license manager.
type License struct {
	Key     string
	Name    string
	Edition string
	Total   int32
	Used    int32
}

// ListLicenses returns the licenses known to the license manager, keyed by
// license key.
func (c *Client) ListLicenses(ctx context.Context) (map[string]License, error) {
	mgr := license.NewManager(c.vim)

	infos, err := mgr.List(ctx)
	if err != nil {
		return nil, stateerrors.NewRemoteOperationError("list licenses", "", err)
	}

	licenses := make(map[string]License, len(infos))
	for _, info := range infos {
		l := License{
			Key:     info.LicenseKey,
			Name:    info.Name,
			Edition: info.EditionKey,
			Total:   info.Total,
		}
		l.Used = info.Used
		licenses[info.LicenseKey] = l
	}
	return licenses, nil
}

// AddLicense registers a license key with the license manager.
func (c *Client) AddLicense(ctx context.Context, key string, labels map[string]string) error {
	mgr := license.NewManager(c.vim)

	if _, err := mgr.Add(ctx, key, labels); err != nil {
		return stateerrors.NewRemoteOperationError("add license", "", err)
	}
	return nil
}

// RemoveLicense deletes a license key from the license manager.
func (c *Client) RemoveLicense(ctx context.Context, key string) error {
	mgr := license.NewManager(c.vim)

	if err := mgr.Remove(ctx, key); err != nil {
		return stateerrors.NewRemoteOperationError("remove license", "", err)
	}
	return nil
}
