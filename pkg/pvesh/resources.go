// pkg/pvesh/resources.go

package pvesh

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/proxmox"
	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/utils"
)

// ErrNoApplicableNodes is returned when no cluster node matches the local host
var ErrNoApplicableNodes = errors.New("no applicable nodes")

// Nodes lists the cluster members
func (c *Client) Nodes() ([]proxmox.Node, error) {
	var nodes []proxmox.Node
	if err := c.Get("/nodes/", &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// LocalNodes returns the nodes whose guests this run inspects: the node
// named like the local host, or all of them when AllNodes is set.
func (c *Client) LocalNodes() ([]proxmox.Node, error) {
	nodes, err := c.Nodes()
	if err != nil {
		return nil, err
	}

	if !c.opts.AllNodes {
		hostname := c.opts.Hostname
		if hostname == "" {
			hostname = c.exec.GetHostname()
		}
		me := utils.ShortHostname(hostname)

		var mine []proxmox.Node
		for _, n := range nodes {
			if n.Node == me {
				mine = append(mine, n)
			}
		}
		nodes = mine
	}

	if len(nodes) == 0 {
		return nil, errors.WithHint(ErrNoApplicableNodes, "run on a cluster node or pass --all-nodes")
	}
	return nodes, nil
}

// QemuVMs lists the QEMU guests of the applicable nodes sorted by vmid
func (c *Client) QemuVMs() ([]proxmox.VM, error) {
	nodes, err := c.LocalNodes()
	if err != nil {
		return nil, err
	}

	var vms []proxmox.VM
	for _, node := range nodes {
		list, err := c.GuestsOnNode(node.Node)
		if err != nil {
			return nil, err
		}
		vms = append(vms, list...)
	}

	sort.SliceStable(vms, func(i, j int) bool { return vms[i].VMID < vms[j].VMID })
	c.logger.Debug("Listed QEMU guests", zap.Int("count", len(vms)), zap.Int("nodes", len(nodes)))
	return vms, nil
}

// VMConfig fetches the configuration of a guest
func (c *Client) VMConfig(vm proxmox.VM) (proxmox.VMConfig, error) {
	var raw map[string]any
	path := fmt.Sprintf("/nodes/%s/qemu/%d/config", vm.ParentNode, vm.ID())
	if err := c.Get(path, &raw); err != nil {
		return proxmox.VMConfig{}, err
	}
	return proxmox.NewVMConfig(vm.ParentNode, vm.ID(), raw), nil
}

// Storages lists the storage definitions
func (c *Client) Storages() ([]proxmox.StorageConfig, error) {
	var storages []proxmox.StorageConfig
	if err := c.Get("/storage", &storages); err != nil {
		return nil, err
	}
	return storages, nil
}

// StorageByName fetches a single storage definition
func (c *Client) StorageByName(name string) (proxmox.StorageConfig, error) {
	var storage proxmox.StorageConfig
	if err := c.Get(fmt.Sprintf("/storage/%s", name), &storage); err != nil {
		return proxmox.StorageConfig{}, err
	}
	if storage.Storage == "" {
		storage.Storage = name
	}
	return storage, nil
}

// BackupJobs lists the scheduled backup jobs
func (c *Client) BackupJobs() ([]proxmox.BackupJob, error) {
	var jobs []proxmox.BackupJob
	if err := c.Get("/cluster/backup", &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
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
	path := fmt.Sprintf("/nodes/%s/lxc/%d/config", ct.ParentNode, int(ct.VMID))
	if err := c.Get(path, &raw); err != nil {
		return proxmox.VMConfig{}, err
	}
	return proxmox.NewVMConfig(ct.ParentNode, int(ct.VMID), raw), nil
}

// GuestsOnNode lists the QEMU guests of one node regardless of AllNodes
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

// NodeNetwork lists the network interfaces of a node
func (c *Client) NodeNetwork(node string) ([]proxmox.NetworkInterface, error) {
	var ifaces []proxmox.NetworkInterface
	if err := c.Get(fmt.Sprintf("/nodes/%s/network", node), &ifaces); err != nil {
		return nil, err
	}
	return ifaces, nil
}
