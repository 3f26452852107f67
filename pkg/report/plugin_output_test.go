package report

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/checks"
)

func TestWritePluginOutputOK(t *testing.T) {
	var buf bytes.Buffer
	code := WritePluginOutput(&buf, nil, nil)
	assert.Equal(t, ExitOK, code)
	assert.Equal(t, "PROXMOX OK - no issues found | issues=0\n", buf.String())
}

func TestWritePluginOutputAllSquelched(t *testing.T) {
	all := []checks.Issue{{Name: checks.IssueStorageInvalidContent, Description: "x", Ext: map[string]string{"storage": "local"}}}

	var buf bytes.Buffer
	code := WritePluginOutput(&buf, all, nil)
	assert.Equal(t, ExitOK, code)
	assert.Equal(t, "PROXMOX OK - no issues found | issues=0\n", buf.String())
}

func TestWritePluginOutputWarning(t *testing.T) {
	surviving := []checks.Issue{
		{Name: checks.IssueVMStopped, Description: "VM 105 is stopped but is marked to start on boot", Ext: map[string]string{"vm": "105"}},
		{Name: checks.IssueBackupNoNetwork, Description: "No network backup schedule found."},
	}
	all := append([]checks.Issue{{Name: checks.IssueStorageInvalidContent}}, surviving...)

	var buf bytes.Buffer
	code := WritePluginOutput(&buf, all, surviving)
	assert.Equal(t, ExitWarning, code)

	want := "PROXMOX WARNING - found configuration issues | issues=3\n" +
		"\n" +
		"vm:stopped [vm=105]\n" +
		"  VM 105 is stopped but is marked to start on boot\n" +
		"\n" +
		"backup:no_network\n" +
		"  No network backup schedule found.\n" +
		"\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteUnknown(t *testing.T) {
	var buf bytes.Buffer
	code := WriteUnknown(&buf, errors.New("pvesh get /nodes/: exit status 2"))
	assert.Equal(t, ExitUnknown, code)
	assert.Equal(t, "PROXMOX UNKNOWN - pvesh get /nodes/: exit status 2\n", buf.String())
}
