// pkg/inventory/inventory.go

// Package inventory builds an Ansible dynamic inventory from the cluster
// nodes, QEMU guests and LXC containers.
package inventory

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/proxmox"
)

// Source provides the cluster data the inventory is built from
type Source interface {
	Nodes() ([]proxmox.Node, error)
	NodeNetwork(node string) ([]proxmox.NetworkInterface, error)
	GuestsOnNode(node string) ([]proxmox.VM, error)
	VMConfig(vm proxmox.VM) (proxmox.VMConfig, error)
	Containers(node string) ([]proxmox.Container, error)
	ContainerConfig(ct proxmox.Container) (proxmox.VMConfig, error)
}

// Group names shared by every inventory
const (
	GroupAllNodes      = "all_nodes"
	GroupAllVMs        = "all_vms"
	GroupAllContainers = "all_containers"
)

// Options controls what ends up in the inventory
type Options struct {
	// GroupPrefix prefixes the qemu, lxc and per-node groups
	GroupPrefix string

	// FactsPrefix prefixes every host variable
	FactsPrefix string

	// WantFacts adds the guest record and config as host variables
	WantFacts bool

	// NodeAnsibleHost sets ansible_host of nodes from their bridge address
	NodeAnsibleHost bool

	// Statuses keeps only guests in one of these states; empty keeps all
	Statuses []string

	// StrictHostnames keeps guest names as they are
	StrictHostnames bool
}

// DefaultOptions returns the options used by the inventory command
func DefaultOptions() Options {
	return Options{
		GroupPrefix:     "proxmox_",
		FactsPrefix:     "proxmox_",
		WantFacts:       true,
		NodeAnsibleHost: true,
		Statuses:        []string{proxmox.StatusRunning},
	}
}

// Group is an inventory group
type Group struct {
	Hosts    []string `json:"hosts,omitempty" yaml:"hosts,omitempty"`
	Children []string `json:"children,omitempty" yaml:"children,omitempty"`
}

// Inventory is an Ansible inventory: groups plus per-host variables
type Inventory struct {
	Groups   map[string]*Group
	HostVars map[string]map[string]any
}

// New returns an empty inventory
func New() *Inventory {
	return &Inventory{
		Groups:   make(map[string]*Group),
		HostVars: make(map[string]map[string]any),
	}
}

// AddGroup creates a group if it does not exist yet
func (inv *Inventory) AddGroup(name string) *Group {
	g, ok := inv.Groups[name]
	if !ok {
		g = &Group{}
		inv.Groups[name] = g
	}
	return g
}

// AddHost adds a host to a group, creating both as needed
func (inv *Inventory) AddHost(group, host string) {
	g := inv.AddGroup(group)
	for _, h := range g.Hosts {
		if h == host {
			return
		}
	}
	g.Hosts = append(g.Hosts, host)
	if _, ok := inv.HostVars[host]; !ok {
		inv.HostVars[host] = make(map[string]any)
	}
}

// SetVar sets a host variable
func (inv *Inventory) SetVar(host, key string, value any) {
	vars, ok := inv.HostVars[host]
	if !ok {
		vars = make(map[string]any)
		inv.HostVars[host] = vars
	}
	vars[key] = value
}

// Host returns the variables of one host, empty for unknown hosts
func (inv *Inventory) Host(name string) map[string]any {
	if vars, ok := inv.HostVars[name]; ok {
		return vars
	}
	return map[string]any{}
}

// Tree returns the inventory in the --list layout with _meta.hostvars
func (inv *Inventory) Tree() map[string]any {
	tree := make(map[string]any, len(inv.Groups)+1)
	for name, g := range inv.Groups {
		tree[name] = g
	}
	tree["_meta"] = map[string]any{"hostvars": inv.HostVars}
	return tree
}

// MarshalJSON renders the --list layout
func (inv *Inventory) MarshalJSON() ([]byte, error) {
	return json.Marshal(inv.Tree())
}

var (
	invalidHostChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)
	qemuIP           = regexp.MustCompile(`ip=(\d+\.\d+\.\d+\.\d+)`)
	lxcIP            = regexp.MustCompile(`ip=([^/,]+)`)
)

// SanitizeHostname replaces characters Ansible does not accept in host names
func SanitizeHostname(name string) string {
	return invalidHostChars.ReplaceAllString(name, "_")
}

// Builder assembles an inventory from a Source
type Builder struct {
	src    Source
	opts   Options
	logger *zap.Logger
}

// NewBuilder creates a builder
func NewBuilder(src Source, opts Options, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{src: src, opts: opts, logger: logger.Named("inventory")}
}

// Build lists the cluster. Failures on a single node or guest are logged
// and skipped; only a failure to list the nodes is returned.
func (b *Builder) Build() (*Inventory, error) {
	nodes, err := b.src.Nodes()
	if err != nil {
		return nil, err
	}

	inv := New()
	inv.AddGroup(GroupAllNodes)
	inv.AddGroup(GroupAllVMs)
	inv.AddGroup(GroupAllContainers)
	inv.AddGroup(b.opts.GroupPrefix + "qemu")
	inv.AddGroup(b.opts.GroupPrefix + "lxc")

	for _, node := range nodes {
		if node.Node == "" {
			continue
		}
		b.addNode(inv, node)

		nodeGroup := b.opts.GroupPrefix + "node_" + SanitizeHostname(node.Node)
		inv.AddGroup(nodeGroup)

		vms, err := b.src.GuestsOnNode(node.Node)
		if err != nil {
			b.logger.Warn("Listing QEMU guests failed", zap.String("node", node.Node), zap.Error(err))
		}
		for _, vm := range vms {
			if !b.statusWanted(vm.Status) {
				continue
			}
			b.addVM(inv, vm, nodeGroup)
		}

		cts, err := b.src.Containers(node.Node)
		if err != nil {
			b.logger.Warn("Listing containers failed", zap.String("node", node.Node), zap.Error(err))
		}
		for _, ct := range cts {
			if !b.statusWanted(ct.Status) {
				continue
			}
			b.addContainer(inv, ct, nodeGroup)
		}
	}
	return inv, nil
}

func (b *Builder) addNode(inv *Inventory, node proxmox.Node) {
	host := node.Node
	inv.AddHost(GroupAllNodes, host)
	inv.SetVar(host, b.opts.FactsPrefix+"type", "node")
	inv.SetVar(host, b.opts.FactsPrefix+"status", node.Status)

	if !b.opts.NodeAnsibleHost {
		return
	}
	ifaces, err := b.src.NodeNetwork(node.Node)
	if err != nil {
		b.logger.Warn("Listing node network failed", zap.String("node", node.Node), zap.Error(err))
		return
	}
	if ip := bridgeAddress(ifaces); ip != "" {
		inv.SetVar(host, "ansible_host", ip)
	}
}

func (b *Builder) addVM(inv *Inventory, vm proxmox.VM, nodeGroup string) {
	host := b.hostname(vm.Name, fmt.Sprintf("vm-%d", vm.ID()))
	inv.AddHost(GroupAllVMs, host)
	inv.AddHost(b.opts.GroupPrefix+"qemu", host)
	inv.AddHost(nodeGroup, host)
	b.guestVars(inv, host, "qemu", vm.ID(), vm.ParentNode, vm.Name, vm.Status)

	config, err := b.src.VMConfig(vm)
	if err != nil {
		b.logger.Warn("Reading VM config failed", zap.Int("vm", vm.ID()), zap.Error(err))
	} else if ip := configAddress(config, qemuIP, "net", "ipconfig"); ip != "" {
		inv.SetVar(host, "ansible_host", ip)
	}

	if b.opts.WantFacts {
		b.facts(inv, host, vm, config)
	}
}

func (b *Builder) addContainer(inv *Inventory, ct proxmox.Container, nodeGroup string) {
	host := b.hostname(ct.Name, fmt.Sprintf("lxc-%d", int(ct.VMID)))
	inv.AddHost(GroupAllContainers, host)
	inv.AddHost(b.opts.GroupPrefix+"lxc", host)
	inv.AddHost(nodeGroup, host)
	b.guestVars(inv, host, "lxc", int(ct.VMID), ct.ParentNode, ct.Name, ct.Status)

	config, err := b.src.ContainerConfig(ct)
	if err != nil {
		b.logger.Warn("Reading container config failed", zap.Int("vm", int(ct.VMID)), zap.Error(err))
	} else if ip := configAddress(config, lxcIP, "net"); ip != "" {
		inv.SetVar(host, "ansible_host", ip)
	}

	if b.opts.WantFacts {
		b.facts(inv, host, ct, config)
	}
}

func (b *Builder) guestVars(inv *Inventory, host, kind string, vmid int, node, name, status string) {
	p := b.opts.FactsPrefix
	inv.SetVar(host, p+"type", kind)
	inv.SetVar(host, p+"vmid", vmid)
	inv.SetVar(host, p+"node", node)
	inv.SetVar(host, p+"name", name)
	inv.SetVar(host, p+"status", status)
}

// facts copies the guest record fields and its config keys as prefixed variables
func (b *Builder) facts(inv *Inventory, host string, record any, config proxmox.VMConfig) {
	p := b.opts.FactsPrefix

	data, err := json.Marshal(record)
	if err == nil {
		var fields map[string]any
		if json.Unmarshal(data, &fields) == nil {
			for k, v := range fields {
				key := p + k
				if _, exists := inv.HostVars[host][key]; exists {
					continue
				}
				inv.SetVar(host, key, v)
			}
		}
	}

	for _, k := range config.Keys() {
		v, _ := config.Get(k)
		inv.SetVar(host, p+"config_"+k, v)
	}
}

func (b *Builder) hostname(name, fallback string) string {
	if name == "" {
		return fallback
	}
	if b.opts.StrictHostnames {
		return name
	}
	return SanitizeHostname(name)
}

func (b *Builder) statusWanted(status string) bool {
	if len(b.opts.Statuses) == 0 {
		return true
	}
	for _, s := range b.opts.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// bridgeAddress returns the address of the first active bridge
func bridgeAddress(ifaces []proxmox.NetworkInterface) string {
	for _, iface := range ifaces {
		if iface.Type == "bridge" && bool(iface.Active) && iface.Address != "" {
			return iface.Address
		}
	}
	return ""
}

// configAddress returns the first static ip= address found in config keys
// starting with one of prefixes, in key order
func configAddress(config proxmox.VMConfig, re *regexp.Regexp, prefixes ...string) string {
	for _, prefix := range prefixes {
		for _, k := range config.Keys() {
			if !strings.HasPrefix(k, prefix) {
				continue
			}
			v, _ := config.Get(k)
			m := re.FindStringSubmatch(v)
			if m == nil {
				continue
			}
			switch ip := m[1]; ip {
			case "dhcp", "manual", "auto":
				continue
			default:
				return ip
			}
		}
	}
	return ""
}
