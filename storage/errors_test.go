package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

type timeoutError struct{}

func (timeoutError) Error() string { return "i/o wait" }
func (timeoutError) Timeout() bool { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"canceled", context.Canceled, ErrCanceled},
		{"deadline", fmt.Errorf("insert: %w", context.DeadlineExceeded), ErrTimeout},
		{"typed timeout", timeoutError{}, ErrTimeout},
		{"wrapped sentinel", fmt.Errorf("lookup: %w", ErrNotFound), ErrNotFound},
		{"fs not exist", fmt.Errorf("stat: %w", fs.ErrNotExist), ErrNotFound},
		{"fs exist", fmt.Errorf("mkdir: %w", fs.ErrExist), ErrAlreadyExists},
		{"http 404", errors.New("googleapi: Error 404: Not found: Dataset p:tb_results"), ErrNotFound},
		{"http 409", errors.New("googleapi: Error 409: Already Exists: Table p:tb_results.t"), ErrAlreadyExists},
		{"s3 access denied", errors.New("operation error S3: PutObject, AccessDenied"), ErrAccessDenied},
		{"local permission", errors.New("open /x: permission denied"), ErrPermissionDenied},
		{"throttled", errors.New("SlowDown: please reduce your request rate"), ErrThrottled},
		{"credentials", errors.New("google: could not find default credentials"), ErrAuth},
		{"network", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify_Unclassified(t *testing.T) {
	got := Classify(errors.New("something odd"))
	if got == nil || got.Error() != "storage error" {
		t.Errorf("Classify() = %v, want generic storage error", got)
	}
}

func TestWrap(t *testing.T) {
	if Wrap("insert", "ds.t", nil) != nil {
		t.Fatal("Wrap(nil) should be nil")
	}

	base := errors.New("googleapi: Error 404: Not found")
	err := Wrap("get_namespace", "tb_results", base)

	if !IsNotFound(err) {
		t.Errorf("expected IsNotFound, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Error("underlying error must stay in the chain")
	}

	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatal("expected *StorageError")
	}
	if se.Op != "get_namespace" || se.Resource != "tb_results" {
		t.Errorf("unexpected op/resource: %q %q", se.Op, se.Resource)
	}

	// Already classified errors pass through unchanged.
	explicit := NewStorageError(ErrAlreadyExists, "create_collection", "ds.t", errors.New("race"))
	if Wrap("other", "x", explicit) != error(explicit) {
		t.Error("Wrap should not re-wrap a StorageError")
	}
	if !IsAlreadyExists(explicit) {
		t.Error("expected IsAlreadyExists")
	}
}

func TestWrap_MarksMessageClassificationInferred(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantKind     error
		wantInferred bool
	}{
		{"message 404", errors.New("proxy: upstream returned 404 not found"), ErrNotFound, true},
		{"message 409", errors.New("conflict on table"), ErrAlreadyExists, true},
		{"typed not exist", fmt.Errorf("stat: %w", fs.ErrNotExist), ErrNotFound, false},
		{"typed timeout", timeoutError{}, ErrTimeout, false},
		{"unclassified", errors.New("something odd"), errUnclassified, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var se *StorageError
			if !errors.As(Wrap("get_namespace", "tb_results", tt.err), &se) {
				t.Fatal("expected *StorageError")
			}
			if se.Kind != tt.wantKind || se.Inferred != tt.wantInferred {
				t.Errorf("Kind/Inferred = %v/%v, want %v/%v", se.Kind, se.Inferred, tt.wantKind, tt.wantInferred)
			}
		})
	}
}

func TestIsDefinite(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
		want bool
	}{
		{"explicit not found", NewStorageError(ErrNotFound, "get_collection", "ds.t", nil), ErrNotFound, true},
		{"wrapped explicit", fmt.Errorf("check: %w", NewStorageError(ErrNotFound, "get_collection", "ds.t", nil)), ErrNotFound, true},
		{"bare sentinel", fmt.Errorf("lookup: %w", ErrNotFound), ErrNotFound, true},
		{"typed fs error", Wrap("get_namespace", "ns", fs.ErrNotExist), ErrNotFound, true},
		{"not found in message", Wrap("get_namespace", "ns", errors.New("proxy: upstream returned 404 not found")), ErrNotFound, false},
		{"exists in message", Wrap("create_namespace", "ns", errors.New("duplicate request id")), ErrAlreadyExists, false},
		{"other kind", NewStorageError(ErrAccessDenied, "get_namespace", "ns", nil), ErrNotFound, false},
		{"nil", nil, ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDefinite(tt.err, tt.kind); got != tt.want {
				t.Errorf("IsDefinite(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestStorageError_Message(t *testing.T) {
	err := NewStorageError(ErrNotFound, "upload", "tb-results/run1/a.txt", errors.New("bucket missing"))
	want := "upload tb-results/run1/a.txt: not found: bucket missing"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	noResource := NewStorageError(ErrNetwork, "insert", "", errors.New("eof"))
	if noResource.Error() != "insert: network error: eof" {
		t.Errorf("Error() = %q", noResource.Error())
	}
}

func TestStorageError_NoUnderlying(t *testing.T) {
	err := NewStorageError(ErrNotFound, "get_collection", "tb_results.tb_results_table", nil)
	if err.Error() != "get_collection tb_results.tb_results_table: not found" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound should match")
	}
}
