package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/utils/utilstest"
)

func TestInventoryList(t *testing.T) {
	exec := healthyCluster().
		Set("/nodes/pve1/network", `[{"iface":"vmbr0","type":"bridge","active":1,"address":"10.0.0.2"}]`).
		Set("/nodes/pve1/lxc", `[]`)
	withCluster(t, exec, afero.NewMemMapFs())

	code, stdout, stderr := runCLI(t, "inventory", "--list")
	require.Equal(t, 0, code, stderr)

	var tree map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(stdout), &tree))
	assert.Contains(t, tree, "all_nodes")
	assert.Contains(t, tree, "proxmox_node_pve1")
	assert.Contains(t, tree, "_meta")
}

func TestInventoryHost(t *testing.T) {
	withCluster(t, healthyCluster(), afero.NewMemMapFs())

	code, stdout, stderr := runCLI(t, "inventory", "--host", "web")
	require.Equal(t, 0, code, stderr)

	var vars map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &vars))
	assert.Equal(t, "10.0.0.100", vars["ansible_host"])
	assert.Equal(t, "qemu", vars["proxmox_type"])
}

func TestInventoryYAML(t *testing.T) {
	withCluster(t, healthyCluster(), afero.NewMemMapFs())

	code, stdout, stderr := runCLI(t, "inventory", "--yaml", "--want-facts=false")
	require.Equal(t, 0, code, stderr)

	var tree map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &tree))
	assert.Contains(t, tree, "all_vms")
}

func TestInventoryNodeListFailure(t *testing.T) {
	withCluster(t, utilstest.NewFakeExecutor("pve1"), afero.NewMemMapFs())

	code, stdout, _ := runCLI(t, "inventory")
	assert.Equal(t, 3, code)
	assert.Empty(t, stdout)
}

func TestSetAnsibleHost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.yml")
	require.NoError(t, os.WriteFile(path, []byte(`all:
  children:
    tailscale:
      children:
        servers:
          hosts:
            web:
              ip: 100.64.0.5
`), 0644))

	code, stdout, stderr := runCLI(t, "inventory", "set-ansible-host", path)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "ansible_host: 100.64.0.5")
	assert.Contains(t, stderr, "Updated 1 hosts in group tailscale")

	code, _, _ = runCLI(t, "inventory", "set-ansible-host", "--in-place", path)
	require.Equal(t, 0, code)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ansible_host: 100.64.0.5")
}

func TestInventoryFromAPI(t *testing.T) {
	// no pvesh calls are expected
	withCluster(t, utilstest.NewFakeExecutor("control"), afero.NewMemMapFs())

	bodies := map[string]string{
		"/api2/json/version":                    `{"version":"8.1.4"}`,
		"/api2/json/nodes":                      `[{"node":"pve1","status":"online"}]`,
		"/api2/json/nodes/pve1/network":         `[{"iface":"vmbr0","type":"bridge","active":1,"address":"10.0.0.2"}]`,
		"/api2/json/nodes/pve1/qemu":            `[{"vmid":100,"name":"web","status":"running"}]`,
		"/api2/json/nodes/pve1/qemu/100/config": `{"ipconfig0":"ip=10.0.0.100/24"}`,
		"/api2/json/nodes/pve1/lxc":             `[]`,
	}
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data":%s}`, body)
	}))
	defer srv.Close()

	t.Setenv("CHECK_PROXMOX_API_TOKEN_SECRET", "afcc8309")
	code, stdout, stderr := runCLI(t, "inventory", "--host", "web",
		"--url", srv.URL, "--user", "ansible@pve", "--token-id", "inventory", "--validate-certs=false")
	require.Equal(t, 0, code, stderr)

	var vars map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &vars))
	assert.Equal(t, "10.0.0.100", vars["ansible_host"])
	assert.Equal(t, "pve1", vars["proxmox_node"])
}

func TestInventoryAPIWithoutCredentials(t *testing.T) {
	withCluster(t, utilstest.NewFakeExecutor("control"), afero.NewMemMapFs())

	code, stdout, stderr := runCLI(t, "inventory", "--url", "https://pve.example.lan:8006", "--user", "ansible@pve")
	assert.Equal(t, 3, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "could not connect to Proxmox API")
	assert.Contains(t, stderr, "Hint:")
}
