package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kewos554321/blaze4harbor/adapter"
	"github.com/kewos554321/blaze4harbor/blob"
	"github.com/kewos554321/blaze4harbor/blob/gcs"
	blobminio "github.com/kewos554321/blaze4harbor/blob/minio"
	blobs3 "github.com/kewos554321/blaze4harbor/blob/s3"
	"github.com/kewos554321/blaze4harbor/cli/config"
	"github.com/kewos554321/blaze4harbor/log"
	"github.com/kewos554321/blaze4harbor/metrics"
	"github.com/kewos554321/blaze4harbor/runtime"
	"github.com/kewos554321/blaze4harbor/schema"
	"github.com/kewos554321/blaze4harbor/warehouse"
	"github.com/kewos554321/blaze4harbor/warehouse/bigquery"
	warehouselode "github.com/kewos554321/blaze4harbor/warehouse/lode"
	"github.com/kewos554321/blaze4harbor/warehouse/postgres"
)

// publishers holds the opened publish branches and the run notifier.
// A nil branch is disabled.
type publishers struct {
	structured runtime.StructuredPublisher
	blob       runtime.BlobPublisher
	notifier   adapter.Adapter
	closers    []func() error
}

// Close releases every opened backend.
func (p *publishers) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openPublishers opens both stores and the notifier from cfg. In dry-run
// mode both stores are stubs that log instead of contacting anything.
func openPublishers(ctx context.Context, cfg *config.Config, collector *metrics.Collector, logger *log.Logger) (*publishers, error) {
	p := &publishers{}

	if cfg.Structured.Backend != config.BackendNone {
		backend, err := openWarehouse(ctx, cfg.Structured, cfg.DryRun, logger)
		if err != nil {
			return nil, fmt.Errorf("open structured store %s: %w", cfg.Structured.Backend, err)
		}
		p.closers = append(p.closers, backend.Close)

		desc, err := schema.Results(cfg.Structured.SchemaVersion)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		pub, err := warehouse.NewPublisher(backend, warehouse.PublisherConfig{
			Namespace:  cfg.Structured.Namespace,
			Collection: cfg.Structured.Collection,
			Descriptor: desc,
			Collector:  collector,
			Logger:     logger,
		})
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		p.structured = pub
	}

	if cfg.Blob.Backend != config.BackendNone {
		bucket, err := openBucket(ctx, cfg.Blob, cfg.DryRun, logger)
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("open blob store %s: %w", cfg.Blob.Backend, err)
		}
		p.closers = append(p.closers, bucket.Close)
		p.blob = blob.NewTreeUploader(bucket, cfg.Blob.Prefix, logger)
	}

	notifier, err := openNotifier(cfg.Notify)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("open notifier: %w", err)
	}
	if notifier != nil {
		p.closers = append(p.closers, notifier.Close)
		p.notifier = notifier
	}

	return p, nil
}

func openWarehouse(ctx context.Context, cfg config.StructuredConfig, dryRun bool, logger *log.Logger) (warehouse.Backend, error) {
	if dryRun {
		stub := warehouse.NewStubBackend()
		stub.Logger = logger
		return stub, nil
	}

	switch cfg.Backend {
	case config.StructuredBigQuery:
		return bigquery.New(ctx, bigquery.Config{Project: cfg.Project, Location: cfg.Location})
	case config.StructuredPostgres:
		return postgres.Open(ctx, postgres.Config{URL: cfg.PostgresURL, PingTimeout: cfg.Timeout.Duration})
	case config.StructuredLode:
		if cfg.Lode.Storage == config.LodeS3 {
			bucket, prefix := warehouselode.ParseS3Path(cfg.Lode.Path)
			return warehouselode.NewS3(ctx, warehouselode.S3Config{
				Bucket:       bucket,
				Prefix:       prefix,
				Region:       cfg.Lode.Region,
				Endpoint:     cfg.Lode.Endpoint,
				UsePathStyle: cfg.Lode.S3PathStyle,
			})
		}
		root := cfg.Lode.Path
		if root == "" {
			root = config.DefaultLodePath
		}
		return warehouselode.NewFS(root), nil
	default:
		return nil, fmt.Errorf("unknown structured backend %q", cfg.Backend)
	}
}

func openBucket(ctx context.Context, cfg config.BlobConfig, dryRun bool, logger *log.Logger) (blob.Bucket, error) {
	if dryRun {
		stub := blob.NewStubBucket(cfg.Bucket)
		stub.Logger = logger
		return stub, nil
	}

	switch cfg.Backend {
	case config.BlobGCS:
		return gcs.New(ctx, cfg.Bucket)
	case config.BlobS3:
		return blobs3.New(ctx, blobs3.Config{
			Bucket:       cfg.Bucket,
			Region:       cfg.Region,
			Endpoint:     cfg.Endpoint,
			UsePathStyle: cfg.S3PathStyle,
		})
	case config.BlobMinIO:
		return blobminio.New(ctx, blobminio.Config{
			Endpoint:     cfg.Endpoint,
			AccessKey:    cfg.AccessKey,
			SecretKey:    cfg.SecretKey,
			UseSSL:       cfg.UseSSL,
			Region:       cfg.Region,
			Bucket:       cfg.Bucket,
			CreateBucket: cfg.CreateBucket,
		})
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
	}
}
