// pkg/utils/utilstest/fake_executor.go

// Package utilstest provides a scripted CommandExecutor for tests.
package utilstest

import (
	"strings"

	"github.com/cockroachdb/errors"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/utils"
)

// FakeExecutor answers commands from canned output. Outputs and Errors are
// keyed by the arguments joined with spaces, without any --output-format flag,
// e.g. "get /nodes/".
type FakeExecutor struct {
	Hostname string
	Outputs  map[string]string
	Errors   map[string]error

	// Calls records every full command line run
	Calls []string
}

// NewFakeExecutor returns an executor for host with no canned output
func NewFakeExecutor(host string) *FakeExecutor {
	return &FakeExecutor{
		Hostname: host,
		Outputs:  make(map[string]string),
		Errors:   make(map[string]error),
	}
}

// Set registers the output for "get <path>"
func (f *FakeExecutor) Set(path, output string) *FakeExecutor {
	f.Outputs["get "+path] = output
	return f
}

// RunCommand implements utils.CommandExecutor
func (f *FakeExecutor) RunCommand(name string, args ...string) (string, error) {
	f.Calls = append(f.Calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))

	var keyArgs []string
	for _, a := range args {
		if strings.HasPrefix(a, "--output-format") {
			continue
		}
		keyArgs = append(keyArgs, a)
	}
	key := strings.Join(keyArgs, " ")

	if err, ok := f.Errors[key]; ok {
		return "", err
	}
	if out, ok := f.Outputs[key]; ok {
		return out, nil
	}
	return "", &utils.CommandError{
		Command:  name + " " + key,
		ExitCode: 2,
		Stderr:   "no such path '" + key + "'",
		Err:      errors.New("exit status 2"),
	}
}

// GetHostname implements utils.CommandExecutor
func (f *FakeExecutor) GetHostname() string {
	return f.Hostname
}

// IsLocal implements utils.CommandExecutor
func (f *FakeExecutor) IsLocal() bool {
	return true
}

// CallCount returns how often exactly this command line was run
func (f *FakeExecutor) CallCount(line string) int {
	n := 0
	for _, c := range f.Calls {
		if c == line {
			n++
		}
	}
	return n
}
