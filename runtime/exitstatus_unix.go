//go:build unix

package runtime

import (
	"errors"
	"os/exec"
	"syscall"
)

// exitStatus extracts the exit status from a Wait error.
// A signal-terminated process reports 128+signal, as shells do.
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return -1
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return exitErr.ExitCode()
	}
	if status.Signaled() {
		return 128 + int(status.Signal())
	}
	return status.ExitStatus()
}
