package gcs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/kewos554321/blaze4harbor/storage"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"bucket missing", gcs.ErrBucketNotExist, storage.ErrNotFound},
		{"wrapped bucket missing", fmt.Errorf("writer: %w", gcs.ErrBucketNotExist), storage.ErrNotFound},
		{"404", &googleapi.Error{Code: http.StatusNotFound}, storage.ErrNotFound},
		{"403", &googleapi.Error{Code: http.StatusForbidden}, storage.ErrAccessDenied},
		{"401", &googleapi.Error{Code: http.StatusUnauthorized}, storage.ErrAuth},
		{"429", &googleapi.Error{Code: http.StatusTooManyRequests}, storage.ErrThrottled},
		{"message pattern", errors.New("dial tcp: connection refused"), storage.ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("upload", "tb-results/run1/result.json", tt.err)
			if !errors.Is(err, tt.want) {
				t.Errorf("classify(%v) = %v, want %v", tt.err, err, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Error("underlying error must stay in the chain")
			}
		})
	}
	if classify("upload", "x", nil) != nil {
		t.Error("classify(nil) must be nil")
	}
}

func TestClassify_NamesResource(t *testing.T) {
	err := classify("upload", "tb-results/run1/result.json", gcs.ErrBucketNotExist)
	want := "upload tb-results/run1/result.json: not found: storage: bucket doesn't exist"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
