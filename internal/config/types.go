package config

import (
	"gopkg.in/yaml.v3"
)

// Plan represents the full esxistate plan document.
type Plan struct {
	Version     string     `yaml:"version" validate:"required,semver"`
	Name        string     `yaml:"name" validate:"required,min=1,max=100"`
	Description string     `yaml:"description,omitempty"`
	Connection  Connection `yaml:"connection" validate:"required"`
	Settings    Settings   `yaml:"settings,omitempty"`
	Steps       []Step     `yaml:"steps" validate:"required,min=1,dive"`
}

// Connection describes how to reach the vCenter or standalone ESXi endpoint.
// Password resolution order: Password field, then the environment variable
// named by PasswordEnv, then an interactive prompt when a terminal is
// attached.
type Connection struct {
	Endpoint    string `yaml:"endpoint" validate:"required"`
	Username    string `yaml:"username" validate:"required"`
	Password    string `yaml:"password,omitempty"`
	PasswordEnv string `yaml:"password_env,omitempty"`
	Insecure    bool   `yaml:"insecure,omitempty"`
	Datacenter  string `yaml:"datacenter,omitempty"`
}

// Settings holds global execution parameters.
type Settings struct {
	Parallel        int  `yaml:"parallel,omitempty" validate:"omitempty,min=1,max=32"`
	Timeout         int  `yaml:"timeout,omitempty" validate:"omitempty,min=1,max=360000"`
	ContinueOnError bool `yaml:"continue_on_error,omitempty"`
	DryRun          bool `yaml:"dry_run,omitempty"`
	Verbose         bool `yaml:"verbose,omitempty"`
}

// Step describes an individual reconciliation in the plan.
type Step struct {
	ID        string   `yaml:"id" validate:"required,step_id"`
	Name      string   `yaml:"name,omitempty"`
	Type      string   `yaml:"type" validate:"required,oneof=user role vmkernel_adapter maintenance_mode lockdown_mode firewall_ruleset advanced_settings ntp password vsan license"`
	DependsOn []string `yaml:"depends_on,omitempty"`
	Enabled   bool     `yaml:"enabled,omitempty"`

	// Hosts restricts the reconciliation scope to the named hosts. Empty
	// means every host reachable through the connection.
	Hosts []string `yaml:"hosts,omitempty"`

	User        *UserStep             `yaml:",inline,omitempty"`
	Role        *RoleStep             `yaml:",inline,omitempty"`
	VMKernel    *VMKernelAdapterStep  `yaml:",inline,omitempty"`
	Maintenance *MaintenanceModeStep  `yaml:",inline,omitempty"`
	Lockdown    *LockdownModeStep     `yaml:",inline,omitempty"`
	Firewall    *FirewallRulesetStep  `yaml:",inline,omitempty"`
	Advanced    *AdvancedSettingsStep `yaml:",inline,omitempty"`
	NTP         *NTPStep              `yaml:",inline,omitempty"`
	Password    *PasswordStep         `yaml:",inline,omitempty"`
	VSAN        *VSANStep             `yaml:",inline,omitempty"`
	License     *LicenseStep          `yaml:",inline,omitempty"`
}

// UnmarshalYAML customises step decoding to populate type-specific structures without conflicts.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	type baseStep struct {
		ID        string   `yaml:"id"`
		Name      string   `yaml:"name"`
		Type      string   `yaml:"type"`
		DependsOn []string `yaml:"depends_on"`
		Enabled   *bool    `yaml:"enabled"`
		Hosts     []string `yaml:"hosts"`
	}

	var base baseStep
	if err := value.Decode(&base); err != nil {
		return err
	}

	s.ID = base.ID
	s.Name = base.Name
	s.Type = base.Type
	s.DependsOn = append([]string(nil), base.DependsOn...)
	s.Hosts = append([]string(nil), base.Hosts...)
	if base.Enabled != nil {
		s.Enabled = *base.Enabled
	} else {
		s.Enabled = true
	}

	s.User = nil
	s.Role = nil
	s.VMKernel = nil
	s.Maintenance = nil
	s.Lockdown = nil
	s.Firewall = nil
	s.Advanced = nil
	s.NTP = nil
	s.Password = nil
	s.VSAN = nil
	s.License = nil

	switch base.Type {
	case "user":
		var cfg UserStep
		if err := value.Decode(&cfg); err != nil {
			return err
		}
		s.User = &cfg
	case "role":
		var cfg RoleStep
		if err := value.Decode(&cfg); err != nil {
			return err
		}
		s.Role = &cfg
	case "vmkernel_adapter":
		var cfg VMKernelAdapterStep
		if err := value.Decode(&cfg); err != nil {
			return err
		}
		s.VMKernel = &cfg
	case "maintenance_mode":
		var cfg MaintenanceModeStep
		if err := value.Decode(&cfg); err != nil {
			return err
		}
		s.Maintenance = &cfg
	case "lockdown_mode":
		var cfg LockdownModeStep
		if err := value.Decode(&cfg); err != nil {
			return err
		}
		s.Lockdown = &cfg
	case "firewall_ruleset":
		var cfg FirewallRulesetStep
		if err := value.Decode(&cfg); err != nil {
			return err
		}
		s.Firewall = &cfg
	case "advanced_settings":
		var cfg AdvancedSettingsStep
		if err := value.Decode(&cfg); err != nil {
			return err
		}
		s.Advanced = &cfg
	case "ntp":
		var cfg NTPStep
		if err := value.Decode(&cfg); err != nil {
			return err
		}
		s.NTP = &cfg
	case "password":
		var cfg PasswordStep
		if err := value.Decode(&cfg); err != nil {
			return err
		}
		s.Password = &cfg
	case "vsan":
		var cfg VSANStep
		if err := value.Decode(&cfg); err != nil {
			return err
		}
		s.VSAN = &cfg
	case "license":
		var cfg LicenseStep
		if err := value.Decode(&cfg); err != nil {
			return err
		}
		s.License = &cfg
	}

	return nil
}

// UserStep manages a local ESXi account.
type UserStep struct {
	Ensure      string `yaml:"ensure" validate:"required,oneof=present absent"`
	Username    string `yaml:"username" validate:"required,min=1,max=255"`
	Password    string `yaml:"password,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// RoleStep manages an authorization role and its privilege set.
type RoleStep struct {
	Ensure       string   `yaml:"ensure" validate:"required,oneof=present absent"`
	Role         string   `yaml:"role" validate:"required,min=1"`
	PrivilegeIDs []string `yaml:"privilege_ids,omitempty" validate:"omitempty,dive,min=1"`
}

// VMKernelAdapterStep manages a vmkernel network adapter.
type VMKernelAdapterStep struct {
	Ensure      string `yaml:"ensure" validate:"required,oneof=present absent"`
	Device      string `yaml:"device,omitempty"`
	PortGroup   string `yaml:"port_group,omitempty"`
	MTU         int    `yaml:"mtu,omitempty" validate:"omitempty,min=1280,max=9000"`
	NetworkType string `yaml:"network_type,omitempty" validate:"omitempty,oneof=dhcp static"`
	IP          string `yaml:"ip,omitempty" validate:"omitempty,ip"`
	Netmask     string `yaml:"netmask,omitempty" validate:"omitempty,ip"`
}

// MaintenanceModeStep drives a host in or out of maintenance mode. Timeout
// is passed through to the endpoint unchanged, in seconds.
type MaintenanceModeStep struct {
	Enter    bool `yaml:"enter"`
	Timeout  int  `yaml:"timeout,omitempty" validate:"omitempty,min=0,max=86400"`
	Evacuate bool `yaml:"evacuate,omitempty"`
}

// LockdownModeStep toggles host lockdown mode.
type LockdownModeStep struct {
	Enabled bool `yaml:"enabled"`
}

// FirewallRulesetStep toggles one firewall ruleset.
type FirewallRulesetStep struct {
	Ruleset string `yaml:"ruleset" validate:"required,min=1"`
	Enabled bool   `yaml:"enabled"`
}

// AdvancedSettingsStep sets advanced option values by key.
type AdvancedSettingsStep struct {
	Options map[string]any `yaml:"options" validate:"required,min=1"`
}

// NTPStep manages the host NTP server list.
type NTPStep struct {
	Servers        []string `yaml:"servers" validate:"required,min=1,dive,min=1"`
	RestartService bool     `yaml:"restart_service,omitempty"`
}

// PasswordStep updates a local account password. The current password is not
// readable from the endpoint, so the step always applies outside dry-run.
type PasswordStep struct {
	Username    string `yaml:"username" validate:"required,min=1"`
	Password    string `yaml:"password,omitempty"`
	PasswordEnv string `yaml:"password_env,omitempty"`
}

// VSANStep toggles VSAN membership for a host.
type VSANStep struct {
	Enabled  bool `yaml:"enabled"`
	AddDisks bool `yaml:"add_disks,omitempty"`
}

// LicenseStep manages a license key registration in the endpoint's license
// manager. Licenses live on the license manager, not on individual hosts.
type LicenseStep struct {
	Ensure string            `yaml:"ensure" validate:"required,oneof=present absent"`
	Key    string            `yaml:"key" validate:"required,min=1"`
	Labels map[string]string `yaml:"labels,omitempty"`
}
