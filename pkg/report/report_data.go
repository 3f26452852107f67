// pkg/report/report_data.go
// This file stores findings next to the AsciiDoc report in machine-readable form

package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/checks"
)

// ReportData represents the structured run results for JSON storage
type ReportData struct {
	Hostname    string        `json:"hostname"`
	Title       string        `json:"title"`
	GeneratedAt time.Time     `json:"generated_at"`
	ChecksRun   []string      `json:"checks_run"`
	Findings    []FindingData `json:"findings"`
}

// FindingData is the JSON form of a Finding
type FindingData struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Ext         map[string]string `json:"ext,omitempty"`
	Category    string            `json:"category"`
	ResultKey   string            `json:"result_key"`
	Squelched   bool              `json:"squelched"`
}

// dataPath returns the JSON file kept in a .data directory beside the report
func dataPath(outputPath string) string {
	return filepath.Join(filepath.Dir(outputPath), ".data", filepath.Base(outputPath)+".json")
}

// SaveReportData saves the findings of a report to a JSON file
func SaveReportData(r *AsciiDocReport) (string, error) {
	jsonFile := dataPath(r.OutputPath)
	if err := os.MkdirAll(filepath.Dir(jsonFile), 0755); err != nil {
		return "", errors.Wrap(err, "failed to create data directory")
	}

	data := ReportData{
		Hostname:    r.Hostname,
		Title:       r.Title,
		GeneratedAt: r.GeneratedAt,
		ChecksRun:   r.ChecksRun,
		Findings:    make([]FindingData, len(r.Findings)),
	}
	for i, f := range r.Findings {
		data.Findings[i] = FindingData{
			Name:        f.Issue.Name,
			Description: f.Issue.Description,
			Ext:         f.Issue.Ext,
			Category:    string(f.Category),
			ResultKey:   string(f.ResultKey),
			Squelched:   f.Squelched,
		}
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal findings")
	}
	if err := os.WriteFile(jsonFile, jsonData, 0644); err != nil {
		return "", errors.Wrap(err, "failed to write findings")
	}
	return jsonFile, nil
}

// LoadReportData rebuilds a report from the JSON file saved for outputPath
func LoadReportData(outputPath string) (*AsciiDocReport, error) {
	jsonData, err := os.ReadFile(dataPath(outputPath))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read findings")
	}

	var data ReportData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal findings")
	}

	r := &AsciiDocReport{
		OutputPath:  outputPath,
		Hostname:    data.Hostname,
		Title:       data.Title,
		GeneratedAt: data.GeneratedAt,
		ChecksRun:   data.ChecksRun,
		Findings:    make([]*Finding, len(data.Findings)),
	}
	for i, f := range data.Findings {
		r.Findings[i] = &Finding{
			Issue:     checks.Issue{Name: f.Name, Description: f.Description, Ext: f.Ext},
			Category:  Category(f.Category),
			ResultKey: ResultKey(f.ResultKey),
			Squelched: f.Squelched,
		}
	}
	return r, nil
}
