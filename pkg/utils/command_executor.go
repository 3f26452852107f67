// pkg/utils/command_executor.go

package utils

import (
	"os"
	"strings"
)

// CommandExecutor interface defines methods for executing commands
type CommandExecutor interface {
	// RunCommand runs name with args and returns its standard output.
	// A non-zero exit status is returned as a *CommandError.
	RunCommand(name string, args ...string) (string, error)
	GetHostname() string
	IsLocal() bool
}

// LocalExecutor executes commands locally
type LocalExecutor struct {
	hostname string
}

// NewLocalExecutor creates a new local executor
func NewLocalExecutor() (*LocalExecutor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	return &LocalExecutor{hostname: strings.TrimSpace(hostname)}, nil
}

// RunCommand executes a command locally
func (e *LocalExecutor) RunCommand(name string, args ...string) (string, error) {
	return RunCommand(name, args...)
}

// GetHostname returns the hostname
func (e *LocalExecutor) GetHostname() string {
	return e.hostname
}

// IsLocal returns true for local executor
func (e *LocalExecutor) IsLocal() bool {
	return true
}

// ShortHostname strips the domain part from a hostname
func ShortHostname(hostname string) string {
	return strings.SplitN(hostname, ".", 2)[0]
}
