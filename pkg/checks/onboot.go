// pkg/checks/onboot.go

package checks

import (
	"fmt"
)

// VerifyOnbootRunning flags guests whose state disagrees with their onboot flag.
// Guests without an onboot key are left alone.
func VerifyOnbootRunning(env *Env) ([]Issue, error) {
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

		onboot, set := config.Onboot()
		if !set {
			continue
		}

		switch {
		case onboot && !vm.Running():
			issues = append(issues, Issue{
				Name:        IssueVMStopped,
				Description: fmt.Sprintf("VM %d is stopped but is marked to start on boot", vm.ID()),
				Ext:         vmExt(vm.ID()),
			})
		case !onboot && vm.Running():
			issues = append(issues, Issue{
				Name:        IssueVMNotOnboot,
				Description: fmt.Sprintf("VM %d is started but not marked to start on boot", vm.ID()),
				Ext:         vmExt(vm.ID()),
			})
		}
	}
	return issues, nil
}
