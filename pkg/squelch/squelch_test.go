package squelch

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/checks"
)

var sample = []checks.Issue{
	{Name: checks.IssueVMStopped, Ext: map[string]string{"vm": "105"}},
	{Name: checks.IssueVMStopped, Ext: map[string]string{"vm": "106"}},
	{Name: checks.IssueStorageInvalidContent, Ext: map[string]string{"storage": "local"}},
	{Name: checks.IssueBackupNone, Ext: map[string]string{"vm": "105", "storage": "nfs1"}},
	{Name: checks.IssueBackupNoNetwork},
}

func TestParse(t *testing.T) {
	rules, err := Parse("vm:stopped@vm=105, backup:no_backup@vm=105;storage=nfs1,,storage:is_zfs")
	require.NoError(t, err)
	require.Len(t, rules, 3)

	assert.Equal(t, Rule{Name: "vm:stopped", Restrict: map[string]string{"vm": "105"}}, rules[0])
	assert.Equal(t, map[string]string{"vm": "105", "storage": "nfs1"}, rules[1].Restrict)
	assert.Empty(t, rules[2].Restrict)

	assert.Equal(t, "backup:no_backup@storage=nfs1;vm=105", rules[1].String())
	assert.Equal(t, "storage:is_zfs", rules[2].String())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("vm:stopped@vm")
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))

	_, err = Parse("@vm=105")
	assert.Error(t, err)

	rules, err := Parse("")
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestFilterByVM(t *testing.T) {
	rules, err := Parse("vm:stopped@vm=105")
	require.NoError(t, err)

	got := Filter(sample, rules)
	require.Len(t, got, 4)
	assert.Equal(t, "106", got[0].Ext["vm"])
}

func TestFilterDefault(t *testing.T) {
	rules, err := Parse(Default)
	require.NoError(t, err)

	got := Filter(sample, rules)
	for _, issue := range got {
		assert.NotEqual(t, checks.IssueStorageInvalidContent, issue.Name)
	}
	assert.Len(t, got, 4)
}

func TestFilterRestrictionMustAllMatch(t *testing.T) {
	rules, err := Parse("backup:no_backup@vm=105;storage=local")
	require.NoError(t, err)
	assert.Len(t, Filter(sample, rules), len(sample))

	rules, err = Parse("backup:no_network@vm=105")
	require.NoError(t, err)
	assert.Len(t, Filter(sample, rules), len(sample))
}

func TestFilterIdempotent(t *testing.T) {
	rules, err := Parse("vm:stopped,storage:invalid_content")
	require.NoError(t, err)

	once := Filter(sample, rules)
	twice := Filter(once, rules)
	assert.Equal(t, once, twice)
	assert.Equal(t, []checks.Issue{sample[3], sample[4]}, once)
}

func TestSquelched(t *testing.T) {
	rules, err := Parse("vm:stopped@vm=105")
	require.NoError(t, err)
	assert.True(t, Squelched(sample[0], rules))
	assert.False(t, Squelched(sample[1], rules))
	assert.False(t, Squelched(sample[0], nil))
}
