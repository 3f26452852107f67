// pkg/report/plugin_output.go

package report

import (
	"fmt"
	"io"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/checks"
)

// Monitoring plugin exit codes
const (
	ExitOK      = 0
	ExitWarning = 1
	ExitUnknown = 3
)

// PluginPrefix starts every status line
const PluginPrefix = "PROXMOX"

// WritePluginOutput prints the monitoring plugin result and returns its exit code.
// The perfdata count is the number of issues found before squelching.
func WritePluginOutput(w io.Writer, all, surviving []checks.Issue) int {
	if len(surviving) == 0 {
		fmt.Fprintf(w, "%s OK - no issues found | issues=0\n", PluginPrefix)
		return ExitOK
	}

	fmt.Fprintf(w, "%s WARNING - found configuration issues | issues=%d\n", PluginPrefix, len(all))
	fmt.Fprintln(w)

	for _, issue := range surviving {
		ext := ""
		if len(issue.Ext) > 0 {
			ext = " [" + issue.ExtString() + "]"
		}
		fmt.Fprintf(w, "%s%s\n", issue.Name, ext)
		fmt.Fprintf(w, "  %s\n", issue.Description)
		fmt.Fprintln(w)
	}
	return ExitWarning
}

// WriteUnknown prints the status line for a run that could not complete
func WriteUnknown(w io.Writer, err error) int {
	fmt.Fprintf(w, "%s UNKNOWN - %v\n", PluginPrefix, err)
	return ExitUnknown
}
