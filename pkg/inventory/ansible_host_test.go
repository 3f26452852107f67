package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const tailscaleInventory = `
all:
  children:
    tailscale:
      children:
        servers:
          hosts:
            web:
              ip: 100.64.0.5
            db:
              ip: 100.64.0.6
              ansible_host: db.internal
        laptops:
          hosts:
            thinkpad: {}
    other:
      hosts:
        x:
          ip: 10.0.0.1
`

func TestSetAnsibleHostFromIP(t *testing.T) {
	var tree map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(tailscaleInventory), &tree))

	changed := SetAnsibleHostFromIP(tree, "tailscale")
	assert.Equal(t, 1, changed)

	servers := lookup(tree, "all", "children", "tailscale", "children", "servers", "hosts")
	require.NotNil(t, servers)
	assert.Equal(t, "100.64.0.5", servers["web"].(map[string]any)["ansible_host"])
	assert.Equal(t, "db.internal", servers["db"].(map[string]any)["ansible_host"])

	other := lookup(tree, "all", "children", "other", "hosts", "x")
	assert.NotContains(t, other, "ansible_host")
}

func TestSetAnsibleHostFromIPMissingGroup(t *testing.T) {
	tree := map[string]any{"all": map[string]any{"children": map[string]any{}}}
	assert.Equal(t, 0, SetAnsibleHostFromIP(tree, "tailscale"))
}
