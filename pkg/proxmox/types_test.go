package proxmox

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageConfigContent(t *testing.T) {
	s := StorageConfig{Storage: "nfs1", Type: StorageNFS, Content: "backup,images,iso"}

	assert.Equal(t, []string{ContentImages}, s.Allows(ContentImages, ContentRootdir))
	assert.Empty(t, s.Allows(ContentRootdir))
	assert.True(t, s.IsNetwork())
	assert.False(t, s.IsSMB())
	assert.False(t, s.IsLVM())

	cifs := StorageConfig{Type: StorageCIFS}
	assert.True(t, cifs.IsNetwork())
	assert.True(t, cifs.IsSMB())

	thin := StorageConfig{Type: StorageLVMThin, Content: "rootdir,images"}
	assert.True(t, thin.IsLVM())
	assert.Len(t, thin.ContentSet(), 2)

	empty := StorageConfig{Type: StorageDir}
	assert.Equal(t, map[string]struct{}{"": {}}, empty.ContentSet())
}

func TestBackupJobDecode(t *testing.T) {
	data := `[
		{"id":"backup-1","storage":"nfs1","dow":"mon,wed,fri","vmid":"100,105","starttime":"02:00"},
		{"id":"backup-2","storage":"local","enabled":0,"all":1,"exclude":"101"},
		{"id":"backup-3","storage":"local","enabled":"1","all":1}
	]`

	var jobs []BackupJob
	require.NoError(t, json.Unmarshal([]byte(data), &jobs))
	require.Len(t, jobs, 3)

	assert.True(t, jobs[0].IsEnabled())
	assert.Equal(t, 3, jobs[0].TimesPerWeek())
	assert.Equal(t, IDList{100, 105}, jobs[0].VMIDs)

	assert.False(t, jobs[1].IsEnabled())
	assert.Equal(t, 1, jobs[1].TimesPerWeek())
	assert.True(t, jobs[1].Exclude.Contains(101))
	assert.True(t, bool(jobs[1].All))

	assert.True(t, jobs[2].IsEnabled())
}

func TestVMConfig(t *testing.T) {
	raw := map[string]any{
		"onboot":   float64(1),
		"bootdisk": "scsi0",
		"scsi0":    "local-lvm:vm-105-disk-0,size=32G",
		"cores":    float64(4),
		"agent":    true,
	}
	c := NewVMConfig("pve1", 105, raw)

	onboot, set := c.Onboot()
	assert.True(t, set)
	assert.True(t, onboot)

	v, ok := c.Get("cores")
	assert.True(t, ok)
	assert.Equal(t, "4", v)

	v, _ = c.Get("agent")
	assert.Equal(t, "1", v)

	assert.True(t, c.Has("scsi0"))
	assert.False(t, c.Has("ide2"))
	assert.Equal(t, []string{"agent", "bootdisk", "cores", "onboot", "scsi0"}, c.Keys())

	_, set = NewVMConfig("pve1", 106, map[string]any{}).Onboot()
	assert.False(t, set)

	off, set := NewVMConfig("pve1", 107, map[string]any{"onboot": "0"}).Onboot()
	assert.True(t, set)
	assert.False(t, off)
}

func TestVMDecode(t *testing.T) {
	var vms []VM
	require.NoError(t, json.Unmarshal([]byte(`[{"vmid":"105","name":"web","status":"running","maxmem":2147483648}]`), &vms))
	require.Len(t, vms, 1)
	assert.Equal(t, 105, vms[0].ID())
	assert.True(t, vms[0].Running())
	assert.Equal(t, "", vms[0].ParentNode)
}
