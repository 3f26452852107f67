package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/proxmox"
)

func TestParseBootDisk(t *testing.T) {
	tests := []struct {
		boot    string
		want    string
		wantErr bool
	}{
		{"order=scsi0;ide2;net0", "scsi0", false},
		{"c,disk=virtio0", "virtio0", false},
		{"order=net0", "net0", false},
		{"order=", "", false},
		{"cdn", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.boot, func(t *testing.T) {
			got, err := ParseBootDisk(tt.boot)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetermineBoot(t *testing.T) {
	src := &fakeSource{
		vms: []proxmox.VM{
			guest(100, "running"),
			guest(101, "running"),
			guest(102, "running"),
			guest(103, "running"),
			guest(104, "running"),
			guest(105, "running"),
			guest(106, "running"),
			guest(107, "running"),
			guest(108, "running"),
		},
		configs: map[int]map[string]any{
			100: {"bootdisk": "scsi0", "scsi0": "local-lvm:vm-100-disk-0,size=32G"},
			101: {"boot": "order=virtio0;net0", "virtio0": "nfs1:101/vm-101-disk-0.qcow2"},
			102: {"boot": "cdn"},
			103: {"boot": "order="},
			104: {"boot": "order=scsi1", "scsi0": "local-lvm:vm-104-disk-0"},
			105: {"boot": "order=net0;scsi0", "net0": "virtio=BC:24:11:00:00:05,bridge=vmbr0"},
			106: {"bootdisk": "ide0", "ide0": "none,media=cdrom"},
			107: {},
			108: {"boot": "order=net0"},
		},
		storages: []proxmox.StorageConfig{
			{Storage: "local-lvm", Type: "lvmthin", Content: "rootdir,images"},
			{Storage: "nfs1", Type: "nfs", Content: "images"},
		},
	}

	issues, err := DetermineBoot(&Env{Source: src})
	require.NoError(t, err)

	assert.Equal(t, []string{
		IssueBootdiskNFS,
		IssueBootdiskUnparseable,
		IssueBootdiskMissing,
		IssueBootdiskInvalid,
		IssueBootdiskInvalid,
	}, issueNames(issues))

	wantVMs := []string{"101", "102", "103", "104", "108"}
	for i, issue := range issues {
		assert.Equal(t, map[string]string{"vm": wantVMs[i]}, issue.Ext)
	}
	assert.Equal(t, "VM 101 has a boot disk on nfs storage", issues[0].Description)
}

func TestDetermineBootUnknownStorage(t *testing.T) {
	src := &fakeSource{
		vms:     []proxmox.VM{guest(100, "running")},
		configs: map[int]map[string]any{100: {"bootdisk": "scsi0", "scsi0": "gone:vm-100-disk-0"}},
	}

	_, err := DetermineBoot(&Env{Source: src})
	assert.Error(t, err)
}
