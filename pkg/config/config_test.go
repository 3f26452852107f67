package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/squelch"
)

func writeINI(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monitoring.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("squelch", squelch.Default, "")
	flags.Bool("old-pvesh", false, "")
	flags.String("pvesh", "pvesh", "")
	flags.Bool("all-nodes", false, "")
	flags.String("dump-root", "", "")
	return flags
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper(), filepath.Join(t.TempDir(), "missing.ini"))
	require.NoError(t, err)

	assert.Equal(t, squelch.Default, cfg.Squelch)
	assert.False(t, cfg.OldPvesh)
	assert.Equal(t, "pvesh", cfg.Pvesh)
	assert.False(t, cfg.AllNodes)
	assert.Empty(t, cfg.Source)
}

func TestLoadINI(t *testing.T) {
	path := writeINI(t, `
[other]
squelch = ignored

[proxmox]
squelch = vm:stopped@vm=105;storage=x, backup:no_network
is_old_pvesh = yes
pvesh = /usr/local/bin/pvesh
all_nodes = 1
`)

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Source)
	assert.Equal(t, "vm:stopped@vm=105;storage=x, backup:no_network", cfg.Squelch)
	assert.True(t, cfg.OldPvesh)
	assert.Equal(t, "/usr/local/bin/pvesh", cfg.Pvesh)
	assert.True(t, cfg.AllNodes)

	rules, err := cfg.SquelchRules()
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, map[string]string{"vm": "105", "storage": "x"}, rules[0].Restrict)
}

func TestLoadINIWithoutSection(t *testing.T) {
	cfg, err := Load(NewViper(), writeINI(t, "[nagios]\nhost = x\n"))
	require.NoError(t, err)
	assert.Equal(t, squelch.Default, cfg.Squelch)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load(NewViper(), writeINI(t, "[proxmox]\nis_old_pvesh = perhaps\n"))
	assert.Error(t, err)

	_, err = Load(NewViper(), writeINI(t, "[proxmox]\nsquelch = vm:stopped@vm\n"))
	assert.Error(t, err)
}

func TestPrecedence(t *testing.T) {
	path := writeINI(t, "[proxmox]\nsquelch = backup:no_network\npvesh = /opt/pvesh\n")

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("CHECK_PROXMOX_SQUELCH", "vm:stopped")
		cfg, err := Load(NewViper(), path)
		require.NoError(t, err)
		assert.Equal(t, "vm:stopped", cfg.Squelch)
		assert.Equal(t, "/opt/pvesh", cfg.Pvesh)
	})

	t.Run("flag over env", func(t *testing.T) {
		t.Setenv("CHECK_PROXMOX_SQUELCH", "vm:stopped")
		flags := testFlags()
		require.NoError(t, flags.Parse([]string{"--squelch", "storage:is_zfs", "--all-nodes"}))

		v := NewViper()
		require.NoError(t, BindFlags(v, flags))
		cfg, err := Load(v, path)
		require.NoError(t, err)
		assert.Equal(t, "storage:is_zfs", cfg.Squelch)
		assert.True(t, cfg.AllNodes)
		assert.Equal(t, "/opt/pvesh", cfg.Pvesh)
	})

	t.Run("unset flags keep file values", func(t *testing.T) {
		v := NewViper()
		require.NoError(t, BindFlags(v, testFlags()))
		cfg, err := Load(v, path)
		require.NoError(t, err)
		assert.Equal(t, "backup:no_network", cfg.Squelch)
	})
}

func TestReadINIKeepsSemicolons(t *testing.T) {
	values, err := ReadINI(writeINI(t, "[proxmox]\nsquelch = a@x=1;y=2\n"))
	require.NoError(t, err)
	assert.Equal(t, "a@x=1;y=2", values[KeySquelch])
}

func TestLoadAPISettings(t *testing.T) {
	path := writeINI(t, `
[proxmox]
api_url = https://pve.example.lan:8006
api_user = ansible@pve
api_token_id = inventory
validate_certs = false
`)
	t.Setenv("CHECK_PROXMOX_API_TOKEN_SECRET", "afcc8309")

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, APIConfig{
		URL:         "https://pve.example.lan:8006",
		User:        "ansible@pve",
		TokenID:     "inventory",
		TokenSecret: "afcc8309",
	}, cfg.API)

	cfg, err = Load(NewViper(), filepath.Join(t.TempDir(), "missing.ini"))
	require.NoError(t, err)
	assert.Empty(t, cfg.API.URL)
	assert.True(t, cfg.API.ValidateCerts)
}
