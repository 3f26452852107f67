// pkg/utils/system.go

package utils

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/alexmullins/zip"
	"github.com/cockroachdb/errors"
)

// CommandError describes a command that could not be started or exited non-zero
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("command '%s' exited with status %d: %s", e.Command, e.ExitCode, strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("command '%s' failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// RunningAsRoot checks if the tool is running with root/sudo privileges
func RunningAsRoot() bool {
	return os.Geteuid() == 0
}

// IsProxmoxNode checks if the pvesh binary is reachable on this host
func IsProxmoxNode(pvesh string) bool {
	_, err := exec.LookPath(pvesh)
	return err == nil
}

// RunCommand executes a command and returns its standard output.
// Standard error is kept apart so callers can decode stdout as data.
func RunCommand(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		cmdErr := &CommandError{
			Command: strings.TrimSpace(name + " " + strings.Join(args, " ")),
			Stderr:  stderr.String(),
			Err:     err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cmdErr.ExitCode = exitErr.ExitCode()
		}
		return stdout.String(), cmdErr
	}
	return stdout.String(), nil
}

// CompressWithPassword compresses a file with password protection
func CompressWithPassword(sourcePath string, password string) (string, error) {
	if _, err := os.Stat(sourcePath); os.IsNotExist(err) {
		return "", errors.Newf("source file not found: %s", sourcePath)
	}

	zipPath := sourcePath + ".zip"

	zipFile, err := os.Create(zipPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to create zip file")
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)
	defer zipWriter.Close()

	sourceFile, err := os.Open(sourcePath)
	if err != nil {
		return "", errors.Wrap(err, "failed to open source file")
	}
	defer sourceFile.Close()

	// Create encrypted entry
	writer, err := zipWriter.Encrypt(filepath.Base(sourcePath), password)
	if err != nil {
		return "", errors.Wrap(err, "failed to create encrypted entry")
	}

	if _, err := io.Copy(writer, sourceFile); err != nil {
		return "", errors.Wrap(err, "failed to write to zip")
	}

	return zipPath, nil
}
