package vmware

import (
	"context"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/session/cache"
	"github.com/vmware/govmomi/vim25"

	stateerrors "github.com/esxistate/esxistate/pkg/errors"
)

// Config carries the connection parameters for a vCenter or standalone ESXi
// endpoint.
type Config struct {
	Endpoint   string
	Username   string
	Password   string
	Insecure   bool
	Datacenter string
}

// Client wraps a govmomi session and exposes the per-resource accessor and
// mutator operations the reconcilers need. All reads go straight to the
// endpoint; nothing is cached between reconciliations.
type Client struct {
	vim    *vim25.Client
	finder *find.Finder
	pc     *property.Collector

	datacenter string
}

// New logs in to the endpoint and returns a ready Client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, stateerrors.NewInvalidArgumentError("endpoint", "endpoint is required")
	}

	endpoint := cfg.Endpoint
	if !strings.HasPrefix(endpoint, "http") {
		endpoint = "https://" + endpoint
	}
	if !strings.HasSuffix(endpoint, "/sdk") {
		endpoint += "/sdk"
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing endpoint %q", cfg.Endpoint)
	}
	u.User = url.UserPassword(cfg.Username, cfg.Password)

	s := &cache.Session{
		URL:      u,
		Insecure: cfg.Insecure,
	}

	c := new(vim25.Client)
	if err := s.Login(ctx, c, nil); err != nil {
		return nil, errors.Wrapf(err, "logging in to %s", cfg.Endpoint)
	}

	finder := find.NewFinder(c, false)
	return &Client{
		vim:        c,
		finder:     finder,
		pc:         property.DefaultCollector(c),
		datacenter: cfg.Datacenter,
	}, nil
}

// NewFromVim wraps an existing vim25 client, letting callers reuse a
// pre-established connection.
func NewFromVim(c *vim25.Client) *Client {
	return &Client{
		vim:    c,
		finder: find.NewFinder(c, false),
		pc:     property.DefaultCollector(c),
	}
}

// Vim exposes the underlying SOAP client.
func (c *Client) Vim() *vim25.Client {
	return c.vim
}

func (c *Client) setDatacenter(ctx context.Context) error {
	if c.datacenter != "" {
		dc, err := c.finder.Datacenter(ctx, c.datacenter)
		if err != nil {
			return errors.Wrapf(err, "finding datacenter %q", c.datacenter)
		}
		c.finder.SetDatacenter(dc)
		return nil
	}

	dc, err := c.finder.DefaultDatacenter(ctx)
	if err != nil {
		return errors.Wrap(err, "finding default datacenter")
	}
	c.finder.SetDatacenter(dc)
	return nil
}

// HostSystems returns the host systems in scope, optionally filtered to the
// given names. Order follows the inventory listing.
func (c *Client) HostSystems(ctx context.Context, names []string) ([]*object.HostSystem, error) {
	if err := c.setDatacenter(ctx); err != nil {
		return nil, err
	}

	hosts, err := c.finder.HostSystemList(ctx, "*")
	if err != nil {
		return nil, errors.Wrap(err, "listing host systems")
	}

	if len(names) == 0 {
		return hosts, nil
	}

	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	filtered := hosts[:0]
	for _, h := range hosts {
		if _, ok := wanted[h.Name()]; ok {
			filtered = append(filtered, h)
		}
	}
	return filtered, nil
}

// HostNames returns the names of the hosts in scope.
func (c *Client) HostNames(ctx context.Context, names []string) ([]string, error) {
	hosts, err := c.HostSystems(ctx, names)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, h.Name())
	}
	return out, nil
}

func (c *Client) hostByName(ctx context.Context, name string) (*object.HostSystem, error) {
	hosts, err := c.HostSystems(ctx, []string{name})
	if err != nil {
		return nil, err
	}
	if len(hosts) == 0 {
		return nil, stateerrors.NewNotFoundError("host", name)
	}
	return hosts[0], nil
}
