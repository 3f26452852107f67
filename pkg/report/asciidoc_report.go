// pkg/report/asciidoc_report.go

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/checks"
)

// ResultKey represents the level of importance for a finding in a report summary
type ResultKey string

const (
	// ResultKeyRequired indicates changes are required
	ResultKeyRequired ResultKey = "required"

	// ResultKeyRecommended indicates changes are recommended
	ResultKeyRecommended ResultKey = "recommended"

	// ResultKeyAdvisory indicates a finding that was squelched by configuration
	ResultKeyAdvisory ResultKey = "advisory"

	// ResultKeyNoChange indicates a check that found nothing
	ResultKeyNoChange ResultKey = "nochange"
)

// Category represents a category of findings
type Category string

const (
	CategoryGuests  Category = "Guests"
	CategoryStorage Category = "Storage"
	CategoryBackup  Category = "Backup"
	CategoryOther   Category = "Other"
)

// CategoryFor maps an issue to its report category by the issue name prefix
func CategoryFor(issue checks.Issue) Category {
	switch issue.Category() {
	case "vm":
		return CategoryGuests
	case "storage":
		return CategoryStorage
	case "backup":
		return CategoryBackup
	}
	return CategoryOther
}

// Finding is an issue as it appears in the report
type Finding struct {
	Issue     checks.Issue
	Category  Category
	ResultKey ResultKey
	Squelched bool
}

// AsciiDocReport generates AsciiDoc reports for a health check run
type AsciiDocReport struct {
	// OutputPath is where the report will be saved
	OutputPath string

	Hostname    string
	Title       string
	GeneratedAt time.Time

	// ChecksRun lists the names of the checks executed in this run
	ChecksRun []string

	Findings []*Finding
}

// NewAsciiDocReport creates a new AsciiDoc report
func NewAsciiDocReport(outputPath string) *AsciiDocReport {
	return &AsciiDocReport{
		OutputPath:  outputPath,
		GeneratedAt: time.Now(),
	}
}

// Initialize sets up the report with hostname and title
func (r *AsciiDocReport) Initialize(hostname, title string) {
	r.Hostname = hostname
	r.Title = title
}

// AddCheckRun records that a check was executed
func (r *AsciiDocReport) AddCheckRun(name string) {
	r.ChecksRun = append(r.ChecksRun, name)
}

// AddIssues records every issue found; those missing from surviving are marked squelched
func (r *AsciiDocReport) AddIssues(all, surviving []checks.Issue) {
	kept := make(map[string]int)
	for _, issue := range surviving {
		kept[issueKey(issue)]++
	}

	for _, issue := range all {
		finding := &Finding{Issue: issue, Category: CategoryFor(issue), ResultKey: resultKeyFor(issue)}
		key := issueKey(issue)
		if kept[key] > 0 {
			kept[key]--
		} else {
			finding.Squelched = true
			finding.ResultKey = ResultKeyAdvisory
		}
		r.Findings = append(r.Findings, finding)
	}
}

func issueKey(issue checks.Issue) string {
	return issue.Name + "[" + issue.ExtString() + "]" + issue.Description
}

// resultKeyFor rates guests that will not come back after a reboot and missing
// backups as required, everything else as recommended
func resultKeyFor(issue checks.Issue) ResultKey {
	switch issue.Name {
	case checks.IssueVMStopped, checks.IssueBackupNone, checks.IssueBackupFailed, checks.IssueBackupTooOld:
		return ResultKeyRequired
	}
	return ResultKeyRecommended
}

// Generate generates the report and writes it to the output path
func (r *AsciiDocReport) Generate() (string, error) {
	outputDir := filepath.Dir(r.OutputPath)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create output directory")
	}

	if err := os.WriteFile(r.OutputPath, []byte(r.generateReportContent()), 0644); err != nil {
		return "", errors.Wrap(err, "failed to write report")
	}

	return r.OutputPath, nil
}

// generateReportContent creates the full report content
func (r *AsciiDocReport) generateReportContent() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("= %s\n", r.Title))
	sb.WriteString(fmt.Sprintf(":host: %s\n", r.Hostname))
	sb.WriteString(fmt.Sprintf(":generated: %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05")))

	sb.WriteString(r.generateKeySection())
	sb.WriteString(r.generateSummarySection())

	categorized := r.organizeFindingsByCategory()
	for _, category := range sortedCategories() {
		findings := categorized[category]
		if len(findings) == 0 {
			continue
		}
		sb.WriteString(r.generateCategorySection(category, findings))
	}

	// Reset bgcolor for future tables
	sb.WriteString("[grid=none,frame=none]\n|===\n|{set:cellbgcolor!}\n|===\n\n")

	return sb.String()
}

// generateKeySection creates the color-coded key section
func (r *AsciiDocReport) generateKeySection() string {
	var sb strings.Builder

	sb.WriteString("== Key\n\n")
	sb.WriteString("[cols=\"1,3\", options=header]\n|===\n|Value\n|Description\n\n")

	sb.WriteString("|\n{set:cellbgcolor:#FF0000}\nChanges Required\n|\n{set:cellbgcolor!}\n")
	sb.WriteString("Guests or backups that will not survive a node failure as configured.\n\n")

	sb.WriteString("|\n{set:cellbgcolor:#FEFE20}\nChanges Recommended\n|\n{set:cellbgcolor!}\n")
	sb.WriteString("Configuration that diverges from the cluster storage and boot policy.\n\n")

	sb.WriteString("|\n{set:cellbgcolor:#80E5FF}\nAdvisory\n|\n{set:cellbgcolor!}\n")
	sb.WriteString("Finding suppressed by a squelch rule. Listed for completeness.\n\n")

	sb.WriteString("|\n{set:cellbgcolor:#00FF00}\nNo Change\n|\n{set:cellbgcolor!}\n")
	sb.WriteString("No issue found.\n|===\n\n")

	return sb.String()
}

// generateSummarySection lists the checks run and the counts per result key
func (r *AsciiDocReport) generateSummarySection() string {
	var sb strings.Builder

	sb.WriteString("== Summary\n\n")
	sb.WriteString("Checks run: " + strings.Join(r.ChecksRun, ", ") + "\n\n")

	counts := map[ResultKey]int{}
	for _, f := range r.Findings {
		counts[f.ResultKey]++
	}

	sb.WriteString("[cols=\"2,1\", options=header]\n|===\n|*Result*\n|*Count*\n\n")
	for _, key := range []ResultKey{ResultKeyRequired, ResultKeyRecommended, ResultKeyAdvisory} {
		sb.WriteString(getResultFormatting(key) + "\n")
		sb.WriteString(fmt.Sprintf("|{set:cellbgcolor!}\n%d\n\n", counts[key]))
	}
	if len(r.Findings) == 0 {
		sb.WriteString(getResultFormatting(ResultKeyNoChange) + "\n")
		sb.WriteString("|{set:cellbgcolor!}\n0\n\n")
	}
	sb.WriteString("|===\n\n")

	return sb.String()
}

// generateCategorySection creates a table of findings for one category
func (r *AsciiDocReport) generateCategorySection(category Category, findings []*Finding) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s\n\n", category))
	sb.WriteString("[cols=\"2,1,3,2\", options=header]\n|===\n|*Issue*\n|*Attributes*\n|*Observed Result*\n|*Recommendation*\n\n")

	for _, f := range findings {
		sb.WriteString("|\n{set:cellbgcolor!}\n`" + f.Issue.Name + "`\n\n")
		sb.WriteString("| " + f.Issue.ExtString() + "\n\n")
		sb.WriteString("| " + f.Issue.Description + "\n\n")
		sb.WriteString(getResultFormatting(f.ResultKey) + "\n\n")
	}

	sb.WriteString("|===\n\n")
	return sb.String()
}

// organizeFindingsByCategory groups findings by their category
func (r *AsciiDocReport) organizeFindingsByCategory() map[Category][]*Finding {
	categorized := make(map[Category][]*Finding)
	for _, f := range r.Findings {
		categorized[f.Category] = append(categorized[f.Category], f)
	}
	return categorized
}

// sortedCategories returns categories in the preferred order
func sortedCategories() []Category {
	return []Category{CategoryGuests, CategoryStorage, CategoryBackup, CategoryOther}
}

// getResultFormatting returns formatted AsciiDoc for a result key (used in tables)
func getResultFormatting(resultKey ResultKey) string {
	options := map[ResultKey]string{
		ResultKeyRequired: `|
{set:cellbgcolor:#FF0000}
Changes Required`,
		ResultKeyRecommended: `|
{set:cellbgcolor:#FEFE20}
Changes Recommended`,
		ResultKeyAdvisory: `|
{set:cellbgcolor:#80E5FF}
Advisory`,
		ResultKeyNoChange: `|
{set:cellbgcolor:#00FF00}
No Change`,
	}

	result, ok := options[resultKey]
	if !ok {
		return options[ResultKeyRecommended]
	}
	return result
}
