// Package lode implements the warehouse backend on lode datasets.
//
// Each namespace is a store root (a directory, or an S3 prefix) and each
// collection is a lode dataset of JSONL rows under it. The schema a collection
// was created with is kept in a sidecar object so later runs can detect it.
package lode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"

	"github.com/kewos554321/blaze4harbor/schema"
	"github.com/kewos554321/blaze4harbor/storage"
	"github.com/kewos554321/blaze4harbor/warehouse"
)

// Sidecar object paths within a namespace store.
const (
	namespaceMarker = "_namespace.json"
	schemaSidecar   = "_collections/%s/schema.json"
)

// insertIDField carries the insert id inside each stored record.
const insertIDField = "_insert_id"

// FactoryFunc returns the store factory for one namespace.
type FactoryFunc func(namespace string) lode.StoreFactory

// Backend is a warehouse.Backend over lode stores.
type Backend struct {
	name    string
	factory FactoryFunc

	mu     sync.Mutex
	stores map[string]lode.Store
}

// Verify Backend implements warehouse.Backend.
var _ warehouse.Backend = (*Backend)(nil)

// NewWithFactory creates a backend with a custom per-namespace store factory.
// Use a lode.NewMemory() store for testing.
func NewWithFactory(name string, factory FactoryFunc) *Backend {
	return &Backend{name: name, factory: factory, stores: make(map[string]lode.Store)}
}

// NewFS creates a backend rooted at a local directory. Namespace stores are
// subdirectories of root.
func NewFS(root string) *Backend {
	return NewWithFactory("lode-fs", func(namespace string) lode.StoreFactory {
		dir := filepath.Join(root, namespace)
		return func() (lode.Store, error) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
			return lode.NewFSFactory(dir)()
		}
	})
}

// S3Config holds configuration for the S3 storage root.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom endpoint URL for S3-compatible providers.
	Endpoint string
	// UsePathStyle forces path-style addressing.
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// ParseS3Path parses a path in format "bucket/prefix" or "bucket".
func ParseS3Path(p string) (bucket, prefix string) {
	parts := strings.SplitN(p, "/", 2)
	bucket = parts[0]
	if len(parts) > 1 {
		prefix = strings.Trim(parts[1], "/")
	}
	return bucket, prefix
}

// NewS3 creates a backend rooted at an S3 bucket. Namespace stores are
// prefixes under cfg.Prefix. Uses the AWS SDK default credential chain.
func NewS3(ctx context.Context, cfg S3Config) (*Backend, error) {
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
	client := s3.NewFromConfig(awsConfig, s3Opts...)

	return NewWithFactory("lode-s3", func(namespace string) lode.StoreFactory {
		prefix := path.Join(cfg.Prefix, namespace)
		return func() (lode.Store, error) {
			return lodes3.New(client, lodes3.Config{Bucket: cfg.Bucket, Prefix: prefix})
		}
	}), nil
}

// Name implements warehouse.Backend.
func (b *Backend) Name() string { return b.name }

// GetNamespace implements warehouse.Backend.
func (b *Backend) GetNamespace(ctx context.Context, namespace string) error {
	return b.exists(ctx, "get_namespace", namespace, namespace, namespaceMarker)
}

// CreateNamespace implements warehouse.Backend.
func (b *Backend) CreateNamespace(ctx context.Context, namespace string) error {
	marker := map[string]any{"namespace": namespace}
	return b.putOnce(ctx, "create_namespace", namespace, namespace, namespaceMarker, marker)
}

// GetCollection implements warehouse.Backend.
func (b *Backend) GetCollection(ctx context.Context, namespace, collection string) error {
	return b.exists(ctx, "get_collection", namespace+"."+collection, namespace, fmt.Sprintf(schemaSidecar, collection))
}

// CreateCollection implements warehouse.Backend.
func (b *Backend) CreateCollection(ctx context.Context, namespace, collection string, desc *schema.Descriptor) error {
	resource := namespace + "." + collection
	if err := b.GetNamespace(ctx, namespace); err != nil {
		return err
	}
	return b.putOnce(ctx, "create_collection", resource, namespace, fmt.Sprintf(schemaSidecar, collection), desc)
}

// InsertRow implements warehouse.Backend.
// Lode writes are all-or-nothing, so there are no row-level rejections.
func (b *Backend) InsertRow(ctx context.Context, namespace, collection string, row schema.Row, insertID string) ([]string, error) {
	resource := namespace + "." + collection
	ds, err := b.dataset(namespace, collection)
	if err != nil {
		return nil, storage.Wrap("insert", resource, err)
	}

	record := make(map[string]any, len(row)+1)
	for k, v := range row {
		record[k] = v
	}
	record[insertIDField] = insertID

	if _, err := ds.Write(ctx, []any{record}, lode.Metadata{}); err != nil {
		return nil, storage.Wrap("insert", resource, err)
	}
	return []string{}, nil
}

// Close implements warehouse.Backend.
func (b *Backend) Close() error { return nil }

// Dataset opens the lode dataset backing a collection for reading.
func (b *Backend) Dataset(namespace, collection string) (lode.Dataset, error) {
	return b.dataset(namespace, collection)
}

func (b *Backend) dataset(namespace, collection string) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(collection),
		b.sharedFactory(namespace),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// sharedFactory returns a factory that hands out one store per namespace,
// so sidecars and datasets see the same state.
func (b *Backend) sharedFactory(namespace string) lode.StoreFactory {
	return func() (lode.Store, error) { return b.store(namespace) }
}

func (b *Backend) store(namespace string) (lode.Store, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.stores[namespace]; ok {
		return s, nil
	}
	s, err := b.factory(namespace)()
	if err != nil {
		return nil, err
	}
	b.stores[namespace] = s
	return s, nil
}

func (b *Backend) exists(ctx context.Context, op, resource, namespace, key string) error {
	s, err := b.store(namespace)
	if err != nil {
		return storage.Wrap(op, resource, err)
	}
	ok, err := s.Exists(ctx, key)
	if err != nil {
		return storage.Wrap(op, resource, err)
	}
	if !ok {
		return storage.NewStorageError(storage.ErrNotFound, op, resource, nil)
	}
	return nil
}

// putOnce writes a sidecar object unless it already exists. A write that
// fails because another process got there first reports ErrAlreadyExists.
func (b *Backend) putOnce(ctx context.Context, op, resource, namespace, key string, v any) error {
	s, err := b.store(namespace)
	if err != nil {
		return storage.Wrap(op, resource, err)
	}
	if ok, err := s.Exists(ctx, key); err != nil {
		return storage.Wrap(op, resource, err)
	} else if ok {
		return storage.NewStorageError(storage.ErrAlreadyExists, op, resource, nil)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%s %s: encode: %w", op, resource, err)
	}
	if err := s.Put(ctx, key, bytes.NewReader(data)); err != nil {
		if ok, _ := s.Exists(ctx, key); ok {
			return storage.NewStorageError(storage.ErrAlreadyExists, op, resource, err)
		}
		return storage.Wrap(op, resource, err)
	}
	return nil
}
