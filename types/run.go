// Package types defines core domain types for the blaze4harbor wrapper.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// RunMeta identifies one wrapper invocation. It is attached to every log entry.
type RunMeta struct {
	// RunID is a fresh UUID per invocation.
	RunID string
	// Tool is the wrapped executable path.
	Tool string
	// StartedAt is the wall-clock start of the invocation.
	StartedAt time.Time
}

// Validate checks that the run identity is usable.
func (r *RunMeta) Validate() error {
	if r.RunID == "" {
		return errors.New("run_id must be non-empty")
	}
	if r.Tool == "" {
		return errors.New("tool must be non-empty")
	}
	return nil
}

// CapturedRun is the record of one wrapped-tool execution.
// It is created once per invocation and is immutable after the process exits.
type CapturedRun struct {
	// Command is the wrapped executable.
	Command string
	// Args are the arguments passed to the wrapped executable, in order.
	Args []string
	// LogPath is the capture file holding the raw interleaved stdout/stderr.
	LogPath string
	// ExitStatus is the wrapped process exit status.
	ExitStatus int
	// Strategy names the capture strategy that produced LogPath ("script" or "pipe").
	Strategy string
	// Duration is the wall-clock runtime of the wrapped process.
	Duration time.Duration
}

// Output opens the raw captured output for streaming reads.
// The caller must close the returned reader.
func (c *CapturedRun) Output() (io.ReadCloser, error) {
	if c.LogPath == "" {
		return nil, errors.New("captured run has no capture file")
	}
	f, err := os.Open(c.LogPath)
	if err != nil {
		return nil, fmt.Errorf("open capture file: %w", err)
	}
	return f, nil
}
