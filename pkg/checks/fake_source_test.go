package checks

import (
	"time"

	"github.com/cockroachdb/errors"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/proxmox"
)

// fakeSource serves a fixed cluster snapshot
type fakeSource struct {
	vms      []proxmox.VM
	configs  map[int]map[string]any
	storages []proxmox.StorageConfig
	jobs     []proxmox.BackupJob
	err      error
}

func (f *fakeSource) QemuVMs() ([]proxmox.VM, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vms, nil
}

func (f *fakeSource) VMConfig(vm proxmox.VM) (proxmox.VMConfig, error) {
	return proxmox.NewVMConfig(vm.ParentNode, vm.ID(), f.configs[vm.ID()]), nil
}

func (f *fakeSource) Storages() ([]proxmox.StorageConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.storages, nil
}

func (f *fakeSource) StorageByName(name string) (proxmox.StorageConfig, error) {
	for _, s := range f.storages {
		if s.Storage == name {
			return s, nil
		}
	}
	return proxmox.StorageConfig{}, errors.Newf("no such storage %s", name)
}

func (f *fakeSource) BackupJobs() ([]proxmox.BackupJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.jobs, nil
}

func guest(id int, status string) proxmox.VM {
	return proxmox.VM{ParentNode: "pve1", VMID: proxmox.FlexInt(id), Status: status}
}

func enabled(b bool) *proxmox.FlexBool {
	v := proxmox.FlexBool(b)
	return &v
}

func issueNames(issues []Issue) []string {
	names := make([]string, 0, len(issues))
	for _, i := range issues {
		names = append(names, i.Name)
	}
	return names
}

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
