// Package s3 implements blob.Bucket on Amazon S3 and S3-compatible providers.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/kewos554321/blaze4harbor/blob"
	"github.com/kewos554321/blaze4harbor/storage"
)

// Config holds configuration for the S3 bucket.
type Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom endpoint URL for S3-compatible providers.
	Endpoint string
	// UsePathStyle forces path-style addressing.
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	if strings.Contains(c.Bucket, "/") {
		return fmt.Errorf("S3 bucket %q must not contain a path; use the blob prefix instead", c.Bucket)
	}
	return nil
}

// putObjectAPI is the slice of the S3 client the bucket uses.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Bucket uploads objects to one S3 bucket.
type Bucket struct {
	client putObjectAPI
	name   string
}

// Verify Bucket implements blob.Bucket.
var _ blob.Bucket = (*Bucket)(nil)

// New creates a bucket using the AWS SDK default credential chain.
func New(ctx context.Context, cfg Config) (*Bucket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &Bucket{client: s3.NewFromConfig(awsConfig, s3Opts...), name: cfg.Bucket}, nil
}

// Name implements blob.Bucket.
func (b *Bucket) Name() string { return b.name }

// Put implements blob.Bucket.
func (b *Bucket) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.name),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	return classify("upload", path.Join(b.name, key), err)
}

// Close implements blob.Bucket. The SDK client holds no resources.
func (b *Bucket) Close() error { return nil }

func classify(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noBucket) {
		return storage.NewStorageError(storage.ErrNotFound, op, resource, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket", "NoSuchKey", "NotFound":
			return storage.NewStorageError(storage.ErrNotFound, op, resource, err)
		case "AccessDenied", "AllAccessDisabled":
			return storage.NewStorageError(storage.ErrAccessDenied, op, resource, err)
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return storage.NewStorageError(storage.ErrAuth, op, resource, err)
		case "SlowDown", "Throttling", "RequestLimitExceeded":
			return storage.NewStorageError(storage.ErrThrottled, op, resource, err)
		}
	}
	return storage.Wrap(op, resource, err)
}
