//go:build !unix

package runtime

import (
	"errors"
	"os/exec"
)

// exitStatus extracts the exit status from a Wait error.
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return -1
	}
	return exitErr.ExitCode()
}
