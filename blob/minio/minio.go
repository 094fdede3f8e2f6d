// Package minio implements blob.Bucket on MinIO and other S3-compatible servers
// reached by host:port with static keys.
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kewos554321/blaze4harbor/blob"
	"github.com/kewos554321/blaze4harbor/storage"
)

// Config holds MinIO connection settings.
type Config struct {
	// Endpoint is host:port, without a scheme.
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	Bucket    string
	// CreateBucket makes the bucket on first use when it is missing.
	CreateBucket bool
}

// Validate checks the connection settings.
func (c Config) Validate() error {
	endpoint := strings.TrimSpace(c.Endpoint)
	if endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if strings.Contains(endpoint, "://") {
		return fmt.Errorf("minio endpoint %q must not include a scheme; set use_ssl instead", endpoint)
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("minio access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("minio secret key is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("minio bucket is required")
	}
	return nil
}

// Bucket uploads objects to one MinIO bucket.
type Bucket struct {
	client *minio.Client
	name   string
}

// Verify Bucket implements blob.Bucket.
var _ blob.Bucket = (*Bucket)(nil)

// New connects to the server and, when cfg.CreateBucket is set, makes the bucket if absent.
func New(ctx context.Context, cfg Config) (*Bucket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := minio.New(strings.TrimSpace(cfg.Endpoint), &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	if cfg.CreateBucket {
		if err := ensureBucket(ctx, client, cfg.Bucket, cfg.Region); err != nil {
			return nil, classify("ensure_bucket", cfg.Bucket, err)
		}
	}
	return &Bucket{client: client, name: cfg.Bucket}, nil
}

// ensureBucket creates bucket if it does not exist. A concurrent creator is tolerated.
func ensureBucket(ctx context.Context, client *minio.Client, bucket, region string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	err = client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
	if err != nil && isOwnedBucket(err) {
		return nil
	}
	return err
}

func isOwnedBucket(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
		return true
	}
	return false
}

// Name implements blob.Bucket.
func (b *Bucket) Name() string { return b.name }

// Put implements blob.Bucket.
func (b *Bucket) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := b.client.PutObject(ctx, b.name, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	return classify("upload", path.Join(b.name, key), err)
}

// Close implements blob.Bucket.
func (b *Bucket) Close() error { return nil }

func classify(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchBucket", "NoSuchKey":
		return storage.NewStorageError(storage.ErrNotFound, op, resource, err)
	case "AccessDenied":
		return storage.NewStorageError(storage.ErrAccessDenied, op, resource, err)
	case "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return storage.NewStorageError(storage.ErrAuth, op, resource, err)
	case "SlowDown", "SlowDownWrite":
		return storage.NewStorageError(storage.ErrThrottled, op, resource, err)
	}
	return storage.Wrap(op, resource, err)
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
