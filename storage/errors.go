// Package storage defines the error taxonomy shared by the structured store and the blob store.
//
// Backends translate their native signals (HTTP status codes, SQLSTATE codes, store lookups)
// into the sentinels below so callers can use errors.Is instead of string matching.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// Sentinel errors for storage failure classification.
var (
	// ErrNotFound indicates the target resource does not exist (404, ENOENT, missing schema/table).
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a create call lost a race or repeated an earlier create (409).
	ErrAlreadyExists = errors.New("already exists")

	// ErrPermissionDenied indicates a local permission failure (EACCES).
	ErrPermissionDenied = errors.New("permission denied")

	// ErrAuth indicates missing or invalid credentials.
	ErrAuth = errors.New("authentication failed")

	// ErrAccessDenied indicates valid credentials without permission (403).
	ErrAccessDenied = errors.New("access denied")

	// ErrThrottled indicates rate limiting (429, SlowDown).
	ErrThrottled = errors.New("rate limited")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrNetwork indicates a network-level failure (connection refused, DNS).
	ErrNetwork = errors.New("network error")

	// ErrCanceled indicates the caller canceled the operation.
	ErrCanceled = errors.New("canceled")

	// errUnclassified is the kind for errors matching no pattern.
	errUnclassified = errors.New("storage error")
)

// StorageError wraps an underlying error with a classification.
// The original error stays in the chain for errors.As.
type StorageError struct {
	// Kind is the sentinel used for classification.
	Kind error
	// Op is the operation that failed ("get_namespace", "create_collection", "insert", "upload").
	Op string
	// Resource names the remote resource (namespace.collection, bucket/key).
	Resource string
	// Err is the underlying error.
	Err error
	// Inferred is set when Kind was guessed from the error text rather than
	// from a typed signal or an explicit backend translation.
	Inferred bool
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		if e.Resource != "" {
			return fmt.Sprintf("%s %s: %v", e.Op, e.Resource, e.Kind)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	if e.Resource != "" {
		return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Resource, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *StorageError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// NewStorageError creates a classified storage error with an explicit kind.
func NewStorageError(kind error, op, resource string, err error) *StorageError {
	return &StorageError{
		Kind:     kind,
		Op:       op,
		Resource: resource,
		Err:      err,
	}
}

// Wrap classifies err and wraps it. Returns nil if err is nil.
// Errors that are already a *StorageError are returned unchanged.
func Wrap(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	if kind := classifyTyped(err); kind != nil {
		return NewStorageError(kind, op, resource, err)
	}
	kind := classifyMessage(err)
	se = NewStorageError(kind, op, resource, err)
	se.Inferred = kind != errUnclassified
	return se
}

// IsNotFound reports whether err is classified as ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists reports whether err is classified as ErrAlreadyExists.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsDefinite reports whether err is classified as kind by a typed signal or
// an explicit backend translation. A kind inferred from the error text does
// not count, so callers can refuse to act on a guess.
func IsDefinite(err, kind error) bool {
	if !errors.Is(err, kind) {
		return false
	}
	var se *StorageError
	if errors.As(err, &se) {
		return !se.Inferred
	}
	return true
}

// Classify determines the sentinel for err.
// Typed errors are checked first, then message patterns.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if kind := classifyTyped(err); kind != nil {
		return kind
	}
	return classifyMessage(err)
}

// classifyTyped maps sentinels, context errors, fs errors and net timeouts.
// It returns nil when err carries no typed signal.
func classifyTyped(err error) error {
	if errors.Is(err, context.Canceled) {
		return ErrCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	for _, sentinel := range []error{ErrNotFound, ErrAlreadyExists, ErrPermissionDenied, ErrAuth,
		ErrAccessDenied, ErrThrottled, ErrTimeout, ErrNetwork, ErrCanceled} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, fs.ErrExist):
		return ErrAlreadyExists
	case errors.Is(err, fs.ErrPermission):
		return ErrPermissionDenied
	}

	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return ErrTimeout
	}
	return nil
}

// classifyMessage guesses a sentinel from the error text.
func classifyMessage(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "accessdenied", "forbidden", "403"):
		return ErrAccessDenied
	case containsAny(msg, "permission denied", "eacces"):
		return ErrPermissionDenied
	case containsAny(msg, "already exists", "duplicate", "409", "conflict"):
		return ErrAlreadyExists
	case containsAny(msg, "no such file", "does not exist", "not found", "enoent", "404", "nosuchkey", "nosuchbucket"):
		return ErrNotFound
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return ErrTimeout
	case containsAny(msg, "slowdown", "rate exceeded", "ratelimit", "throttl", "429", "toomanyrequests"):
		return ErrThrottled
	case containsAny(msg, "could not find default credentials", "nocredentialproviders", "credentials",
		"invalidaccesskeyid", "signaturedoesnotmatch", "expiredtoken", "401", "unauthorized"):
		return ErrAuth
	case containsAny(msg, "connection refused", "no route to host", "network is unreachable",
		"no such host", "dial tcp"):
		return ErrNetwork
	default:
		return errUnclassified
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
