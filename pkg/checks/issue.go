// pkg/checks/issue.go

package checks

import (
	"sort"
	"strconv"
	"strings"
)

// Issue names
const (
	IssueVMStopped             = "vm:stopped"
	IssueVMNotOnboot           = "vm:not_onboot"
	IssueStorageIsZFS          = "storage:is_zfs"
	IssueStorageInvalidContent = "storage:invalid_content"
	IssueStorageNoLVM          = "storage:no_lvm"
	IssueBootdiskUnparseable   = "vm:storage:unparseable_bootdisk"
	IssueBootdiskMissing       = "vm:storage:bootdisk_missing"
	IssueBootdiskInvalid       = "vm:storage:bootdisk_invalid"
	IssueBootdiskNFS           = "vm:storage:nfs"
	IssueBackupDisabled        = "backup:disabled"
	IssueBackupNone            = "backup:no_backup"
	IssueBackupFailed          = "backup:failed"
	IssueBackupTooOld          = "backup:too_old"
	IssueBackupUnparseableLog  = "backup:unparseable_log"
	IssueBackupNoNetwork       = "backup:no_network"
)

// Issue is a single finding. Name and Ext together are what squelch rules match on.
type Issue struct {
	Name        string
	Description string
	Ext         map[string]string
}

// Category returns the first segment of the issue name (vm, storage, backup)
func (i Issue) Category() string {
	return strings.SplitN(i.Name, ":", 2)[0]
}

// ExtString renders the extension attributes as "k=v;k=v" sorted by key
func (i Issue) ExtString() string {
	keys := make([]string, 0, len(i.Ext))
	for k := range i.Ext {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+i.Ext[k])
	}
	return strings.Join(parts, ";")
}

func vmExt(vmid int) map[string]string {
	return map[string]string{"vm": strconv.Itoa(vmid)}
}

func vmStorageExt(vmid int, storage string) map[string]string {
	return map[string]string{"vm": strconv.Itoa(vmid), "storage": storage}
}

func storageExt(storage string) map[string]string {
	return map[string]string{"storage": storage}
}
