// pkg/checks/backup.go

package checks

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/proxmox"
)

// FinishedMarker is what vzdump writes as the last line of a successful backup log
const FinishedMarker = "INFO: Finished Backup of VM"

const backupTimeLayout = "2006_01_02T15_04_05"

// minBackupAge is the shortest tolerated gap between backups regardless of schedule
const minBackupAge = 4 * 24 * time.Hour

// Threshold returns how old the latest backup may get for a job running
// timesPerWeek times a week: max(4 days, 7/timesPerWeek days).
func Threshold(timesPerWeek int) time.Duration {
	if timesPerWeek < 1 {
		timesPerWeek = 1
	}
	perSchedule := time.Duration(float64(7*24*time.Hour) / float64(timesPerWeek))
	if perSchedule > minBackupAge {
		return perSchedule
	}
	return minBackupAge
}

// BackupLog is a vzdump log file name taken apart
type BackupLog struct {
	File string
	Type string
	VMID int
	Time time.Time
}

// ParseBackupLogName parses "vzdump-<type>-<vmid>-<YYYY_MM_DD>-<HH_MM_SS>.log".
// ok is false for files that are not backup logs at all; err is set when the
// name looks like a backup log but its timestamp does not parse.
func ParseBackupLogName(name string, loc *time.Location) (log BackupLog, ok bool, err error) {
	if !strings.HasSuffix(name, ".log") {
		return BackupLog{}, false, nil
	}

	base, _, _ := strings.Cut(name, ".")
	parts := strings.Split(base, "-")
	if len(parts) != 5 {
		return BackupLog{}, false, nil
	}

	vmid, convErr := strconv.Atoi(parts[2])
	if convErr != nil || vmid < 0 {
		return BackupLog{}, false, nil
	}

	log = BackupLog{File: name, Type: parts[1], VMID: vmid}
	ts, err := time.ParseInLocation(backupTimeLayout, parts[3]+"T"+parts[4], loc)
	if err != nil {
		return log, true, errors.Wrapf(err, "backup log %s", name)
	}
	log.Time = ts
	return log, true, nil
}

// IncludedVMs returns the vmids a job covers among the existing guests:
// its explicit list, or every guest not excluded.
func IncludedVMs(job proxmox.BackupJob, vms []proxmox.VM) []int {
	existing := make(map[int]bool, len(vms))
	for _, vm := range vms {
		existing[vm.ID()] = true
	}

	var include []int
	if len(job.VMIDs) > 0 {
		include = append(include, job.VMIDs...)
	} else {
		for _, vm := range vms {
			if !job.Exclude.Contains(vm.ID()) {
				include = append(include, vm.ID())
			}
		}
	}

	var result []int
	for _, id := range include {
		if existing[id] {
			result = append(result, id)
		}
	}
	return result
}

// DetermineBackup checks every backup job and the freshness of each guest's latest backup
func DetermineBackup(env *Env) ([]Issue, error) {
	jobs, err := env.Source.BackupJobs()
	if err != nil {
		return nil, err
	}
	vms, err := env.Source.QemuVMs()
	if err != nil {
		return nil, err
	}

	fs := env.fs()
	now := env.now()
	logger := env.logger()

	var issues []Issue
	foundNetwork := false

	for _, job := range jobs {
		if !job.IsEnabled() {
			issue := Issue{Name: IssueBackupDisabled, Description: "A backup schedule is disabled."}
			if job.ID != "" {
				issue.Ext = map[string]string{"job": job.ID}
			}
			issues = append(issues, issue)
			continue
		}

		include := IncludedVMs(job, vms)

		storage, err := env.Source.StorageByName(job.Storage)
		if err != nil {
			return nil, err
		}
		if storage.IsNetwork() {
			foundNetwork = true
		}

		if storage.Path == "" {
			logger.Debug("Backup storage has no path, skipping log scan", zap.String("storage", job.Storage))
			continue
		}
		if ok, _ := afero.DirExists(fs, storage.Path); !ok {
			logger.Debug("Backup storage path not reachable", zap.String("path", storage.Path))
			continue
		}
		dumps := path.Join(storage.Path, "dump")
		if ok, _ := afero.DirExists(fs, dumps); !ok {
			continue
		}

		entries, err := afero.ReadDir(fs, dumps)
		if err != nil {
			return nil, errors.Wrapf(err, "reading dump directory %s", dumps)
		}

		logs := make(map[int][]BackupLog)
		broken := make(map[int][]string)
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			log, ok, err := ParseBackupLogName(entry.Name(), now.Location())
			if !ok {
				continue
			}
			if err != nil {
				broken[log.VMID] = append(broken[log.VMID], log.File)
				continue
			}
			logs[log.VMID] = append(logs[log.VMID], log)
		}

		for _, vmid := range include {
			for _, file := range broken[vmid] {
				issues = append(issues, Issue{
					Name:        IssueBackupUnparseableLog,
					Description: fmt.Sprintf("VM %d backup log %s has an unparseable timestamp", vmid, file),
					Ext:         map[string]string{"vm": strconv.Itoa(vmid), "storage": job.Storage, "file": file},
				})
			}

			latest, found := latestLog(logs[vmid])
			if !found {
				issues = append(issues, Issue{
					Name:        IssueBackupNone,
					Description: fmt.Sprintf("VM %d has backups enabled, but has yet to create a backup.", vmid),
					Ext:         vmStorageExt(vmid, job.Storage),
				})
				continue
			}

			finished, err := logFinished(fs, path.Join(dumps, latest.File))
			if err != nil {
				return nil, err
			}
			if !finished {
				issues = append(issues, Issue{
					Name:        IssueBackupFailed,
					Description: fmt.Sprintf("VM %d latest backup log %s does not indicate a successful backup", vmid, latest.File),
					Ext:         vmStorageExt(vmid, job.Storage),
				})
			}

			if sameDay(latest.Time, now) {
				continue
			}

			if now.Sub(latest.Time) > Threshold(job.TimesPerWeek()) {
				issues = append(issues, Issue{
					Name:        IssueBackupTooOld,
					Description: fmt.Sprintf("Latest backup on VM %d (at %s) is too old", vmid, latest.Time.Format("2006-01-02")),
					Ext:         vmStorageExt(vmid, job.Storage),
				})
			}
		}
	}

	if !foundNetwork {
		issues = append(issues, Issue{
			Name:        IssueBackupNoNetwork,
			Description: "No network backup schedule found.",
		})
	}
	return issues, nil
}

// latestLog picks the newest log; on equal timestamps the first one wins
func latestLog(logs []BackupLog) (BackupLog, bool) {
	var latest BackupLog
	found := false
	for _, l := range logs {
		if !found || l.Time.After(latest.Time) {
			latest = l
			found = true
		}
	}
	return latest, found
}

func logFinished(fs afero.Fs, file string) (bool, error) {
	content, err := afero.ReadFile(fs, file)
	if err != nil {
		return false, errors.Wrapf(err, "reading backup log %s", file)
	}
	text := strings.TrimRight(string(content), "\r\n")
	if text == "" {
		return false, nil
	}
	lastLine := text[strings.LastIndex(text, "\n")+1:]
	return strings.Contains(lastLine, FinishedMarker), nil
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
