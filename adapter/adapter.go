// Package adapter delivers run completion notifications to downstream systems.
//
// Delivery is best-effort: the caller logs failures and never lets them
// change the run's exit code.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kewos554321/blaze4harbor/types"
)

// EventType is the event_type of every RunCompletedEvent.
const EventType = "run_completed"

// RunCompletedEvent is the payload published when a run finishes.
type RunCompletedEvent struct {
	EventType  string        `json:"event_type"`
	RunID      string        `json:"run_id"`
	Tool       string        `json:"tool"`
	Version    string        `json:"version"`
	State      string        `json:"state"`
	ExitCode   int           `json:"exit_code"`
	ResultDir  string        `json:"result_dir,omitempty"`
	Structured *BranchStatus `json:"structured,omitempty"`
	Blob       *BranchStatus `json:"blob,omitempty"`
	Timestamp  string        `json:"timestamp"` // RFC 3339
	DurationMs int64         `json:"duration_ms"`
}

// BranchStatus summarizes one publish branch.
type BranchStatus struct {
	Target    string `json:"target"`
	Succeeded bool   `json:"succeeded"`
	Attempted int    `json:"attempted"`
	Failed    int    `json:"failed"`
	Bytes     int64  `json:"bytes,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NewBranchStatus summarizes o. A nil outcome (skipped branch) yields nil.
func NewBranchStatus(o *types.UploadOutcome) *BranchStatus {
	if o == nil {
		return nil
	}
	return &BranchStatus{
		Target:    o.Target,
		Succeeded: o.Succeeded,
		Attempted: o.Attempted,
		Failed:    o.Failed(),
		Bytes:     o.Bytes,
		Error:     o.ErrorMessage(),
	}
}

// Adapter publishes run completion events to a downstream system.
type Adapter interface {
	// Publish sends a run completion event.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *RunCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// Fanout publishes each event to every adapter in order.
type Fanout []Adapter

// Publish sends event to every adapter, attempting all of them, and joins
// the failures.
func (f Fanout) Publish(ctx context.Context, event *RunCompletedEvent) error {
	var errs []error
	for _, a := range f {
		if err := a.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every adapter.
func (f Fanout) Close() error {
	var errs []error
	for _, a := range f {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Adapter = Fanout(nil)

// permanentError marks a failure that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retriable for Deliver.
func Permanent(err error) error {
	return &permanentError{err: err}
}

// Backoff returns the delay before retry n (1-based): 500ms, 1s, 2s, ...
func Backoff(n int) time.Duration {
	return time.Duration(1<<uint(n-1)) * 500 * time.Millisecond
}

// Deliver calls send once plus up to retries more times, with exponential
// backoff between attempts. Errors marked Permanent stop immediately.
func Deliver(ctx context.Context, retries int, send func(context.Context) error) error {
	var lastErr error
	attempts := 1 + retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context canceled: %w", err)
		}

		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("context canceled during backoff: %w", ctx.Err())
			case <-time.After(Backoff(i)):
			}
		}

		lastErr = send(ctx)
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return fmt.Errorf("non-retriable error: %w", perm.err)
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
