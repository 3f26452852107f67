// pkg/proxmox/types.go

// Package proxmox holds the typed records decoded from pvesh output.
// Records are snapshots: nothing in this repository mutates them after decoding.
package proxmox

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Storage types reported by /storage
const (
	StorageZFSPool = "zfspool"
	StorageLVM     = "lvm"
	StorageLVMThin = "lvmthin"
	StorageNFS     = "nfs"
	StorageCIFS    = "cifs"
	StorageSMB     = "smb"
	StorageDir     = "dir"
)

// Content types a storage may allow
const (
	ContentImages  = "images"
	ContentRootdir = "rootdir"
)

// StatusRunning is the status of a started guest
const StatusRunning = "running"

// Node is a cluster member as listed by /nodes
type Node struct {
	ID             string  `json:"id"`
	Node           string  `json:"node"`
	Type           string  `json:"type"`
	Status         string  `json:"status"`
	Level          string  `json:"level"`
	SSLFingerprint string  `json:"ssl_fingerprint"`
	CPU            float64 `json:"cpu"`
	MaxCPU         FlexInt `json:"maxcpu"`
	Mem            FlexInt `json:"mem"`
	MaxMem         FlexInt `json:"maxmem"`
	Disk           FlexInt `json:"disk"`
	MaxDisk        FlexInt `json:"maxdisk"`
	Uptime         FlexInt `json:"uptime"`
}

// VM is a QEMU guest as listed by /nodes/<node>/qemu
type VM struct {
	// ParentNode is the name of the node hosting the guest. It is filled in
	// by the caller since the API does not repeat it per guest.
	ParentNode string `json:"-"`

	VMID      FlexInt  `json:"vmid"`
	Name      string   `json:"name"`
	Status    string   `json:"status"`
	CPU       float64  `json:"cpu"`
	CPUs      FlexInt  `json:"cpus"`
	Mem       FlexInt  `json:"mem"`
	MaxMem    FlexInt  `json:"maxmem"`
	Disk      FlexInt  `json:"disk"`
	MaxDisk   FlexInt  `json:"maxdisk"`
	DiskRead  FlexInt  `json:"diskread"`
	DiskWrite FlexInt  `json:"diskwrite"`
	NetIn     FlexInt  `json:"netin"`
	NetOut    FlexInt  `json:"netout"`
	Uptime    FlexInt  `json:"uptime"`
	PID       *FlexInt `json:"pid,omitempty"`
	Lock      string   `json:"lock,omitempty"`
	Template  FlexBool `json:"template,omitempty"`
}

// ID returns the vmid as a plain int
func (v VM) ID() int {
	return int(v.VMID)
}

// Running reports whether the guest is started
func (v VM) Running() bool {
	return v.Status == StatusRunning
}

// Container is an LXC guest as listed by /nodes/<node>/lxc
type Container struct {
	ParentNode string `json:"-"`

	VMID   FlexInt `json:"vmid"`
	Name   string  `json:"name"`
	Status string  `json:"status"`
	CPUs   FlexInt `json:"cpus"`
	MaxMem FlexInt `json:"maxmem"`
	Uptime FlexInt `json:"uptime"`
}

// NetworkInterface is one entry of /nodes/<node>/network
type NetworkInterface struct {
	Iface   string   `json:"iface"`
	Type    string   `json:"type"`
	Active  FlexBool `json:"active"`
	Address string   `json:"address"`
}

// StorageConfig is a storage backend definition from /storage
type StorageConfig struct {
	Storage string   `json:"storage"`
	Type    string   `json:"type"`
	Content string   `json:"content"`
	Path    string   `json:"path,omitempty"`
	Shared  FlexBool `json:"shared,omitempty"`
	Disable FlexBool `json:"disable,omitempty"`
}

// ContentSet returns the allowed content types. An empty content string
// yields a set holding the empty string, matching a literal split.
func (s StorageConfig) ContentSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, c := range strings.Split(s.Content, ",") {
		set[strings.TrimSpace(c)] = struct{}{}
	}
	return set
}

// Allows returns the subset of content types the storage allows
func (s StorageConfig) Allows(content ...string) []string {
	set := s.ContentSet()
	var allowed []string
	for _, c := range content {
		if _, ok := set[c]; ok {
			allowed = append(allowed, c)
		}
	}
	return allowed
}

// IsLVM reports lvm and lvmthin backends
func (s StorageConfig) IsLVM() bool {
	return s.Type == StorageLVM || s.Type == StorageLVMThin
}

// IsNetwork reports NFS and CIFS backends
func (s StorageConfig) IsNetwork() bool {
	return s.Type == StorageNFS || s.Type == StorageCIFS
}

// IsSMB reports SMB shares under either type name
func (s StorageConfig) IsSMB() bool {
	return s.Type == StorageSMB || s.Type == StorageCIFS
}

// BackupJob is a scheduled vzdump job from /cluster/backup
type BackupJob struct {
	ID       string     `json:"id"`
	Enabled  *FlexBool  `json:"enabled,omitempty"`
	Storage  string     `json:"storage"`
	VMIDs    IDList     `json:"vmid,omitempty"`
	Exclude  IDList     `json:"exclude,omitempty"`
	All      FlexBool   `json:"all,omitempty"`
	DOW      StringList `json:"dow,omitempty"`
	Schedule string     `json:"schedule,omitempty"`
	StartAt  string     `json:"starttime,omitempty"`
	Mode     string     `json:"mode,omitempty"`
	Node     string     `json:"node,omitempty"`
}

// IsEnabled treats a missing flag as enabled, as the API does
func (b BackupJob) IsEnabled() bool {
	return b.Enabled == nil || bool(*b.Enabled)
}

// TimesPerWeek returns the number of scheduled days, at least one
func (b BackupJob) TimesPerWeek() int {
	if len(b.DOW) == 0 {
		return 1
	}
	return len(b.DOW)
}

// VMConfig is the configuration of one guest. Values keep their API
// representation; accessors report whether a key is present.
type VMConfig struct {
	Node   string
	VMID   int
	values map[string]string
}

// NewVMConfig builds a config from decoded JSON values
func NewVMConfig(node string, vmid int, raw map[string]any) VMConfig {
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		values[k] = stringify(v)
	}
	return VMConfig{Node: node, VMID: vmid, values: values}
}

// Get returns the value for key and whether it was present
func (c VMConfig) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Has reports whether key is present
func (c VMConfig) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Keys returns the config keys in sorted order
func (c VMConfig) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Onboot returns the onboot flag and whether it is set at all
func (c VMConfig) Onboot() (bool, bool) {
	v, ok := c.values["onboot"]
	if !ok {
		return false, false
	}
	b, err := parseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(t)
	}
}
