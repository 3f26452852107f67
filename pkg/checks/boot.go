// pkg/checks/boot.go

package checks

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var netDevice = regexp.MustCompile(`^net\d+$`)

// bootParseError reports a boot order string without a key=value part
type bootParseError struct {
	boot string
}

func (e *bootParseError) Error() string {
	return fmt.Sprintf("unparseable boot order %q", e.boot)
}

// ParseBootDisk returns the first boot device named in a boot order string
// such as "order=scsi0;ide2;net0" or "c,disk=virtio0".
func ParseBootDisk(boot string) (string, error) {
	_, rest, ok := strings.Cut(boot, "=")
	if !ok {
		return "", &bootParseError{boot: boot}
	}
	first, _, _ := strings.Cut(rest, ",")
	first, _, _ = strings.Cut(first, ";")
	return strings.TrimSpace(first), nil
}

// DetermineBoot resolves every guest's boot disk and flags boot disks on network storage
func DetermineBoot(env *Env) ([]Issue, error) {
	vms, err := env.Source.QemuVMs()
	if err != nil {
		return nil, err
	}

	var issues []Issue
	for _, vm := range vms {
		config, err := env.Source.VMConfig(vm)
		if err != nil {
			return nil, err
		}

		bootdisk, ok := config.Get("bootdisk")
		if !ok {
			boot, ok := config.Get("boot")
			if !ok {
				continue
			}
			bootdisk, err = ParseBootDisk(boot)
			if err != nil {
				issues = append(issues, Issue{
					Name:        IssueBootdiskUnparseable,
					Description: fmt.Sprintf("VM %d has an invalid bootdisk", vm.ID()),
					Ext:         vmExt(vm.ID()),
				})
				continue
			}
		}

		device, _, _ := strings.Cut(bootdisk, ",")
		device, _, _ = strings.Cut(device, ";")
		device = strings.TrimSpace(device)
		if device == "" {
			issues = append(issues, Issue{
				Name:        IssueBootdiskMissing,
				Description: fmt.Sprintf("VM %d doesn't have a boot device defined", vm.ID()),
				Ext:         vmExt(vm.ID()),
			})
			continue
		}

		volume, ok := config.Get(device)
		if !ok {
			issues = append(issues, Issue{
				Name:        IssueBootdiskInvalid,
				Description: fmt.Sprintf("VM %d first boot device doesn't exist", vm.ID()),
				Ext:         vmExt(vm.ID()),
			})
			continue
		}

		// PXE boot has no disk to locate
		if netDevice.MatchString(device) {
			continue
		}

		storageName, _, hasStorage := strings.Cut(volume, ":")
		if !hasStorage || strings.Contains(storageName, "none") {
			env.logger().Debug("Boot device has no storage volume",
				zap.Int("vm", vm.ID()), zap.String("device", device), zap.String("volume", volume))
			continue
		}

		store, err := env.Source.StorageByName(storageName)
		if err != nil {
			return nil, err
		}

		if store.IsNetwork() {
			issues = append(issues, Issue{
				Name:        IssueBootdiskNFS,
				Description: fmt.Sprintf("VM %d has a boot disk on %s storage", vm.ID(), store.Type),
				Ext:         vmExt(vm.ID()),
			})
		}
	}
	return issues, nil
}
