// pkg/pveapi/client.go

// Package pveapi reads cluster data through the Proxmox VE REST API, for
// hosts that are not cluster members and so have no pvesh.
package pveapi

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	goproxmox "github.com/luthermonson/go-proxmox"
	"go.uber.org/zap"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/proxmox"
)

// DefaultTimeout bounds every API request
const DefaultTimeout = 30 * time.Second

// ErrNoCredentials is returned when neither a password nor a token is configured
var ErrNoCredentials = errors.New("either password or token_id/token_secret is required for authentication")

// Options configures the API connection
type Options struct {
	// URL of the web interface, e.g. https://pve.example.lan:8006
	URL           string
	User          string
	Password      string
	TokenID       string
	TokenSecret   string
	ValidateCerts bool
	Timeout       time.Duration
	Logger        *zap.Logger
}

// getter is the part of the go-proxmox client used here
type getter interface {
	Get(ctx context.Context, path string, v interface{}) error
}

// Client implements the inventory source on top of the REST API
type Client struct {
	api     getter
	ctx     context.Context
	timeout time.Duration
	logger  *zap.Logger
}

// APIBase returns the JSON API root for a web interface URL
func APIBase(url string) string {
	url = strings.TrimRight(url, "/")
	if strings.HasSuffix(url, "/api2/json") {
		return url
	}
	return url + "/api2/json"
}

// TokenID returns the full token id, user@realm!name, for a token name
func TokenID(user, token string) string {
	if strings.Contains(token, "!") || user == "" {
		return token
	}
	return user + "!" + token
}

// New connects to the API. A password takes precedence over a token.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, errors.New("no API url configured")
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: !opts.ValidateCerts},
		},
	}

	clientOpts := []goproxmox.Option{goproxmox.WithHTTPClient(httpClient)}
	switch {
	case opts.Password != "":
		clientOpts = append(clientOpts, goproxmox.WithCredentials(&goproxmox.Credentials{
			Username: opts.User,
			Password: opts.Password,
		}))
	case opts.TokenID != "" && opts.TokenSecret != "":
		clientOpts = append(clientOpts, goproxmox.WithAPIToken(TokenID(opts.User, opts.TokenID), opts.TokenSecret))
	default:
		return nil, errors.WithHint(ErrNoCredentials,
			"set --password or --token-id and --token-secret, or the matching api_* keys")
	}

	c := newClient(ctx, goproxmox.NewClient(APIBase(opts.URL), clientOpts...), opts.Timeout, opts.Logger)
	if !opts.ValidateCerts {
		c.logger.Warn("TLS certificate validation disabled", zap.String("url", opts.URL))
	}
	return c, nil
}

func newClient(ctx context.Context, api getter, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{api: api, ctx: ctx, timeout: timeout, logger: logger}
}

// Get fetches an API path into v
func (c *Client) Get(path string, v any) error {
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()

	c.logger.Debug("API request", zap.String("path", path))
	if err := c.api.Get(ctx, path, v); err != nil {
		return errors.Wrapf(err, "GET %s", path)
	}
	return nil
}

// Version returns the Proxmox VE release of the API endpoint
func (c *Client) Version() (string, error) {
	var v struct {
		Version string `json:"version"`
		Release string `json:"release"`
	}
	if err := c.Get("/version", &v); err != nil {
		return "", err
	}
	return v.Version, nil
}

// Nodes lists the cluster members
func (c *Client) Nodes() ([]proxmox.Node, error) {
	var nodes []proxmox.Node
	if err := c.Get("/nodes", &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// NodeNetwork lists the network interfaces of a node
func (c *Client) NodeNetwork(node string) ([]proxmox.NetworkInterface, error) {
	var ifaces []proxmox.NetworkInterface
	if err := c.Get(fmt.Sprintf("/nodes/%s/network", node), &ifaces); err != nil {
		return nil, err
	}
	return ifaces, nil
}

// GuestsOnNode lists the QEMU guests of a node
func (c *Client) GuestsOnNode(node string) ([]proxmox.VM, error) {
	var list []proxmox.VM
	if err := c.Get(fmt.Sprintf("/nodes/%s/qemu", node), &list); err != nil {
		return nil, err
	}
	for i := range list {
		list[i].ParentNode = node
	}
	return list, nil
}

// VMConfig fetches the configuration of a QEMU guest
func (c *Client) VMConfig(vm proxmox.VM) (proxmox.VMConfig, error) {
	var raw map[string]any
	if err := c.Get(fmt.Sprintf("/nodes/%s/qemu/%d/config", vm.ParentNode, vm.ID()), &raw); err != nil {
		return proxmox.VMConfig{}, err
	}
	return proxmox.NewVMConfig(vm.ParentNode, vm.ID(), raw), nil
}

// Containers lists the LXC guests of a node
func (c *Client) Containers(node string) ([]proxmox.Container, error) {
	var list []proxmox.Container
	if err := c.Get(fmt.Sprintf("/nodes/%s/lxc", node), &list); err != nil {
		return nil, err
	}
	for i := range list {
		list[i].ParentNode = node
	}
	return list, nil
}

// ContainerConfig fetches the configuration of an LXC guest
func (c *Client) ContainerConfig(ct proxmox.Container) (proxmox.VMConfig, error) {
	var raw map[string]any
	if err := c.Get(fmt.Sprintf("/nodes/%s/lxc/%d/config", ct.ParentNode, int(ct.VMID)), &raw); err != nil {
		return proxmox.VMConfig{}, err
	}
	return proxmox.NewVMConfig(ct.ParentNode, int(ct.VMID), raw), nil
}
