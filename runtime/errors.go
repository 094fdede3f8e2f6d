package runtime

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the captured output carries no results marker line.
	ErrNotFound = errors.New("results marker not found in captured output")
	// ErrArtifactAbsent indicates the result directory has no result.json.
	ErrArtifactAbsent = errors.New("result artifact absent")
	// ErrArtifactMalformed indicates result.json exists but is not a JSON object.
	ErrArtifactMalformed = errors.New("result artifact malformed")
	// ErrInterrupted indicates the run was cancelled by a signal.
	ErrInterrupted = errors.New("interrupted")
	// ErrUnsupportedPlatform indicates no capture strategy exists for the host OS.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// ToolFailureError reports a non-zero exit from the wrapped tool.
// ExitStatus is propagated verbatim as the process exit code.
type ToolFailureError struct {
	Command    string
	ExitStatus int
}

func (e *ToolFailureError) Error() string {
	return fmt.Sprintf("%s failed with exit code: %d", e.Command, e.ExitStatus)
}
