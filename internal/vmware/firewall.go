package vmware

import (
	"context"

	"github.com/vmware/govmomi/vim25/mo"

	stateerrors "github.com/esxistate/esxistate/pkg/errors"
)

// FirewallRuleset is one named ruleset on a host firewall.
type FirewallRuleset struct {
	Key     string
	Label   string
	Enabled bool
}

// ListFirewallRulesets returns the host's firewall rulesets keyed by ruleset
// key (sshServer, ntpClient, ...).
func (c *Client) ListFirewallRulesets(ctx context.Context, host string) (map[string]FirewallRuleset, error) {
	hs, err := c.hostByName(ctx, host)
	if err != nil {
		return nil, stateerrors.NewRemoteOperationError("list firewall rulesets", host, err)
	}

	fs, err := hs.ConfigManager().FirewallSystem(ctx)
	if err != nil {
		return nil, stateerrors.NewRemoteOperationError("list firewall rulesets", host, err)
	}

	var moFw mo.HostFirewallSystem
	if err := c.pc.RetrieveOne(ctx, fs.Reference(), []string{"firewallInfo"}, &moFw); err != nil {
		return nil, stateerrors.NewRemoteOperationError("list firewall rulesets", host, err)
	}

	rulesets := make(map[string]FirewallRuleset)
	if moFw.FirewallInfo == nil {
		return rulesets, nil
	}
	for _, rs := range moFw.FirewallInfo.Ruleset {
		rulesets[rs.Key] = FirewallRuleset{Key: rs.Key, Label: rs.Label, Enabled: rs.Enabled}
	}
	return rulesets, nil
}

// SetFirewallRuleset enables or disables one ruleset.
func (c *Client) SetFirewallRuleset(ctx context.Context, host, key string, enabled bool) error {
	hs, err := c.hostByName(ctx, host)
	if err != nil {
		return stateerrors.NewRemoteOperationError("set firewall ruleset", host, err)
	}

	fs, err := hs.ConfigManager().FirewallSystem(ctx)
	if err != nil {
		return stateerrors.NewRemoteOperationError("set firewall ruleset", host, err)
	}

	if enabled {
		if err := fs.EnableRuleset(ctx, key); err != nil {
			return stateerrors.NewRemoteOperationError("enable firewall ruleset", host, err)
		}
		return nil
	}
	if err := fs.DisableRuleset(ctx, key); err != nil {
		return stateerrors.NewRemoteOperationError("disable firewall ruleset", host, err)
	}
	return nil
}
