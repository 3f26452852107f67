// pkg/checks/storage.go

package checks

import (
	"fmt"
	"strings"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/proxmox"
)

// Guest disk content types: LVM must carry exactly these, network and local storage none of them
var guestContent = []string{proxmox.ContentImages, proxmox.ContentRootdir}

// VerifyStorage checks storage backends against the storage policy
func VerifyStorage(env *Env) ([]Issue, error) {
	storages, err := env.Source.Storages()
	if err != nil {
		return nil, err
	}

	var issues []Issue
	lvmExists := false

	for _, conf := range storages {
		if conf.Type == proxmox.StorageZFSPool {
			issues = append(issues, Issue{
				Name:        IssueStorageIsZFS,
				Description: fmt.Sprintf("Storage %s is ZFS.", conf.Storage),
				Ext:         storageExt(conf.Storage),
			})
		}

		if conf.IsLVM() {
			lvmExists = true
			if !hasExactContent(conf, guestContent) {
				issues = append(issues, Issue{
					Name:        IssueStorageInvalidContent,
					Description: fmt.Sprintf("%s does not allow content rootdir,images exactly", conf.Storage),
					Ext:         storageExt(conf.Storage),
				})
			}
		}

		if conf.Type == proxmox.StorageNFS || conf.IsSMB() {
			if disallowed := conf.Allows(guestContent...); len(disallowed) > 0 {
				issues = append(issues, Issue{
					Name:        IssueStorageInvalidContent,
					Description: fmt.Sprintf("%s allows content %s.", conf.Storage, strings.Join(disallowed, ",")),
					Ext:         storageExt(conf.Storage),
				})
			}
		}

		if conf.Storage == "local" && len(conf.Allows(guestContent...)) > 0 {
			issues = append(issues, Issue{
				Name:        IssueStorageInvalidContent,
				Description: fmt.Sprintf("Local storage supports %s which is not allowed.", conf.Content),
				Ext:         storageExt(conf.Storage),
			})
		}
	}

	if !lvmExists {
		issues = append(issues, Issue{
			Name:        IssueStorageNoLVM,
			Description: "No LVM storage found.",
		})
	}
	return issues, nil
}

func hasExactContent(conf proxmox.StorageConfig, want []string) bool {
	set := conf.ContentSet()
	if len(set) != len(want) {
		return false
	}
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}
