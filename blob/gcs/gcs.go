// Package gcs implements blob.Bucket on Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/kewos554321/blaze4harbor/blob"
	"github.com/kewos554321/blaze4harbor/storage"
)

// Bucket uploads objects to one GCS bucket.
// Credentials come from Application Default Credentials.
type Bucket struct {
	client *gcs.Client
	name   string
}

// Verify Bucket implements blob.Bucket.
var _ blob.Bucket = (*Bucket)(nil)

// New opens a client for bucket.
func New(ctx context.Context, bucket string) (*Bucket, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, classify("connect", bucket, err)
	}
	return &Bucket{client: client, name: bucket}, nil
}

// Name implements blob.Bucket.
func (b *Bucket) Name() string { return b.name }

// Put implements blob.Bucket.
func (b *Bucket) Put(ctx context.Context, key string, body io.Reader, _ int64, contentType string) error {
	resource := path.Join(b.name, key)

	// Canceling the writer's context aborts the upload instead of committing a partial object.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := b.client.Bucket(b.name).Object(key).NewWriter(wctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, body); err != nil {
		cancel()
		_ = w.Close()
		return classify("upload", resource, err)
	}
	if err := w.Close(); err != nil {
		return classify("upload", resource, err)
	}
	return nil
}

// Close implements blob.Bucket.
func (b *Bucket) Close() error {
	if err := b.client.Close(); err != nil {
		return fmt.Errorf("close gcs client: %w", err)
	}
	return nil
}

func classify(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gcs.ErrBucketNotExist) || errors.Is(err, gcs.ErrObjectNotExist) {
		return storage.NewStorageError(storage.ErrNotFound, op, resource, err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return storage.NewStorageError(storage.ErrNotFound, op, resource, err)
		case http.StatusForbidden:
			return storage.NewStorageError(storage.ErrAccessDenied, op, resource, err)
		case http.StatusUnauthorized:
			return storage.NewStorageError(storage.ErrAuth, op, resource, err)
		case http.StatusTooManyRequests:
			return storage.NewStorageError(storage.ErrThrottled, op, resource, err)
		}
	}
	return storage.Wrap(op, resource, err)
}
