package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/report"
)

func TestRenderReport(t *testing.T) {
	t.Setenv("COMPRESS_REPORT", "")
	exec := healthyCluster().
		Set("/nodes/pve1/qemu", `[{"vmid":105,"status":"stopped"}]`).
		Set("/nodes/pve1/qemu/105/config", `{"onboot":1}`)
	withCluster(t, exec, afero.NewMemMapFs())

	out := filepath.Join(t.TempDir(), "pve1.adoc")
	code, _, _ := runCLI(t, "--report="+out, "not-backup")
	require.Equal(t, report.ExitWarning, code)
	original, err := os.ReadFile(out)
	require.NoError(t, err)
	require.NoError(t, os.Remove(out))

	code, stdout, stderr := runCLI(t, "render-report", out)
	assert.Equal(t, report.ExitOK, code, stderr)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Report saved to: "+out)

	rendered, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, string(original), string(rendered))

	copyPath := filepath.Join(t.TempDir(), "copy.adoc")
	code, _, stderr = runCLI(t, "render-report", out, "--output", copyPath)
	assert.Equal(t, report.ExitOK, code, stderr)
	assert.FileExists(t, copyPath)
}

func TestRenderReportWithoutData(t *testing.T) {
	code, stdout, stderr := runCLI(t, "render-report", filepath.Join(t.TempDir(), "missing.adoc"))
	assert.Equal(t, report.ExitUnknown, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "failed to read findings")
	assert.Contains(t, stderr, "Hint:")
}
