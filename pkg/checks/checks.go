// pkg/checks/checks.go

package checks

/*
This file serves as an index to all Proxmox health check functions.

Available checks:
- Guests:
  - VerifyOnbootRunning (onboot.go) - VMs whose running state disagrees with their onboot flag
  - DetermineBoot (boot.go) - Boot disk resolution and boot disks living on network storage

- Storage:
  - VerifyStorage (storage.go) - ZFS pools, LVM presence, allowed content per backend type

- Backup:
  - DetermineBackup (backup.go) - Disabled jobs, missing/failed/stale vzdump logs, network targets
*/

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/proxmox"
)

// Source provides the cluster snapshot the checks evaluate
type Source interface {
	QemuVMs() ([]proxmox.VM, error)
	VMConfig(vm proxmox.VM) (proxmox.VMConfig, error)
	Storages() ([]proxmox.StorageConfig, error)
	StorageByName(name string) (proxmox.StorageConfig, error)
	BackupJobs() ([]proxmox.BackupJob, error)
}

// Env carries what a check needs besides the API snapshot
type Env struct {
	Source Source

	// Fs is used to read backup dump directories
	Fs afero.Fs

	// Now returns the reference time for backup age
	Now func() time.Time

	Logger *zap.Logger
}

func (e *Env) fs() afero.Fs {
	if e.Fs == nil {
		return afero.NewOsFs()
	}
	return e.Fs
}

func (e *Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// Area selects a group of checks from the command line
type Area string

const (
	AreaAll       Area = ""
	AreaBackup    Area = "backup"
	AreaNotBackup Area = "not-backup"
)

// ParseArea validates a command line area argument
func ParseArea(s string) (Area, error) {
	switch Area(s) {
	case AreaAll, AreaBackup, AreaNotBackup:
		return Area(s), nil
	}
	return AreaAll, errors.WithHint(errors.Newf("unknown area %q", s), "use backup or not-backup")
}

// Check is a registered rule set
type Check struct {
	ID   string
	Name string
	Run  func(env *Env) ([]Issue, error)
}

var (
	onbootCheck  = Check{ID: "onboot", Name: "Onboot Consistency", Run: VerifyOnbootRunning}
	storageCheck = Check{ID: "storage", Name: "Storage Policy", Run: VerifyStorage}
	bootCheck    = Check{ID: "bootdisk", Name: "Boot Disk Location", Run: DetermineBoot}
	backupCheck  = Check{ID: "backup", Name: "Backup Freshness", Run: DetermineBackup}
)

// ChecksFor returns the checks that make up an area, in execution order
func ChecksFor(area Area) []Check {
	switch area {
	case AreaBackup:
		return []Check{backupCheck}
	case AreaNotBackup:
		return []Check{onbootCheck, storageCheck, bootCheck}
	default:
		return []Check{onbootCheck, storageCheck, bootCheck, backupCheck}
	}
}

// Run executes checks in order and concatenates their issues. The first
// failing check aborts the run since later checks share the same snapshot.
func Run(env *Env, checks []Check, progress func(Check)) ([]Issue, error) {
	var issues []Issue
	for _, check := range checks {
		found, err := check.Run(env)
		if err != nil {
			return nil, errors.Wrapf(err, "%s check", check.ID)
		}
		env.logger().Debug("Check finished", zap.String("check", check.ID), zap.Int("issues", len(found)))
		issues = append(issues, found...)
		if progress != nil {
			progress(check)
		}
	}
	return issues, nil
}
