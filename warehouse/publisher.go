package warehouse

import (
	"context"
	"errors"
	"fmt"

	"github.com/kewos554321/blaze4harbor/log"
	"github.com/kewos554321/blaze4harbor/metrics"
	"github.com/kewos554321/blaze4harbor/schema"
	"github.com/kewos554321/blaze4harbor/types"
)

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	Namespace  string
	Collection string
	// Descriptor is the collection schema. Nil selects the latest results schema.
	Descriptor *schema.Descriptor
	Collector  *metrics.Collector
	Logger     *log.Logger
}

// Validate checks that the target is named.
func (c *PublisherConfig) Validate() error {
	if c.Namespace == "" {
		return errors.New("structured namespace is required")
	}
	if c.Collection == "" {
		return errors.New("structured collection is required")
	}
	return nil
}

// Publisher provisions the results collection and inserts one row per result directory.
type Publisher struct {
	registry   *Registry
	uploader   *Uploader
	namespace  string
	collection string
	descriptor *schema.Descriptor
	logger     *log.Logger
}

// NewPublisher creates a publisher over backend.
func NewPublisher(backend Backend, cfg PublisherConfig) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	desc := cfg.Descriptor
	if desc == nil {
		var err error
		desc, err = schema.Results(schema.LatestResultsVersion)
		if err != nil {
			return nil, err
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &Publisher{
		registry:   NewRegistry(backend, cfg.Collector, logger),
		uploader:   NewUploader(backend),
		namespace:  cfg.Namespace,
		collection: cfg.Collection,
		descriptor: desc,
		logger:     logger,
	}, nil
}

// Publish maps artifact onto the collection schema, tagging it with the
// result directory's own name, and inserts it.
func (p *Publisher) Publish(ctx context.Context, dir string, artifact types.Artifact) *types.UploadOutcome {
	target := p.namespace + "." + p.collection

	coll, err := p.registry.EnsureCollection(ctx, p.namespace, p.collection, p.descriptor)
	if err != nil {
		return types.FailedOutcome(target, fmt.Errorf("provision %s: %w", target, err))
	}

	row := schema.Map(artifact.With(schema.TaskDirField, types.ResultDirName(dir)), coll.Descriptor)
	p.logger.Debug("inserting row", map[string]any{
		"target":         target,
		"schema_version": coll.Descriptor.Version,
		"fields":         len(row),
	})
	return p.uploader.Insert(ctx, coll, row)
}
