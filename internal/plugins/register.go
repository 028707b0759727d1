// Package plugins wires every resource-kind plugin into a registry.
package plugins

import (
	"github.com/esxistate/esxistate/internal/plugin"
	"github.com/esxistate/esxistate/internal/vmware"

	advancedplugin "github.com/esxistate/esxistate/internal/plugins/advanced"
	firewallplugin "github.com/esxistate/esxistate/internal/plugins/firewall"
	licenseplugin "github.com/esxistate/esxistate/internal/plugins/license"
	lockdownplugin "github.com/esxistate/esxistate/internal/plugins/lockdown"
	maintenanceplugin "github.com/esxistate/esxistate/internal/plugins/maintenance"
	ntpplugin "github.com/esxistate/esxistate/internal/plugins/ntp"
	passwordplugin "github.com/esxistate/esxistate/internal/plugins/password"
	roleplugin "github.com/esxistate/esxistate/internal/plugins/role"
	userplugin "github.com/esxistate/esxistate/internal/plugins/user"
	vmkernelplugin "github.com/esxistate/esxistate/internal/plugins/vmkernel"
	vsanplugin "github.com/esxistate/esxistate/internal/plugins/vsan"
)

// RegisterDefaults registers every built-in plugin against the given
// client.
func RegisterDefaults(registry *plugin.Registry, client *vmware.Client) error {
	all := []plugin.Plugin{
		userplugin.New(client),
		roleplugin.New(client),
		vmkernelplugin.New(client),
		maintenanceplugin.New(client),
		lockdownplugin.New(client),
		firewallplugin.New(client),
		advancedplugin.New(client),
		ntpplugin.New(client),
		passwordplugin.New(client),
		vsanplugin.New(client),
		licenseplugin.New(client),
	}
	for _, p := range all {
		if err := registry.Register(p.PluginMetadata().Name, p); err != nil {
			return err
		}
	}
	return nil
}
