package warehouse

import (
	"context"
	"fmt"

	"github.com/kewos554321/blaze4harbor/log"
	"github.com/kewos554321/blaze4harbor/metrics"
	"github.com/kewos554321/blaze4harbor/schema"
	"github.com/kewos554321/blaze4harbor/storage"
)

// Registry ensures namespaces and collections exist before rows are inserted.
//
// Provisioning is check-then-create at both levels with no client-side lock:
// concurrent first runs are tolerated because a create that loses the race
// reports ErrAlreadyExists, which is treated as success. Only a definite
// ErrNotFound from the existence check leads to a create; one guessed from an
// error message is surfaced. An existing collection is never altered, even if
// its schema differs from desc.
type Registry struct {
	backend   Backend
	collector *metrics.Collector
	logger    *log.Logger
}

// NewRegistry creates a registry over backend. collector and logger may be nil.
func NewRegistry(backend Backend, collector *metrics.Collector, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Nop()
	}
	return &Registry{backend: backend, collector: collector, logger: logger}
}

// EnsureCollection provisions namespace then collection, creating each only when absent.
func (r *Registry) EnsureCollection(ctx context.Context, namespace, collection string, desc *schema.Descriptor) (*Collection, error) {
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema for %s.%s: %w", namespace, collection, err)
	}

	created, err := r.ensure(ctx, "namespace", namespace,
		func() error { return r.backend.GetNamespace(ctx, namespace) },
		func() error { return r.backend.CreateNamespace(ctx, namespace) },
	)
	if err != nil {
		return nil, err
	}
	if created {
		r.collector.IncNamespaceCreated()
	}

	target := namespace + "." + collection
	created, err = r.ensure(ctx, "collection", target,
		func() error { return r.backend.GetCollection(ctx, namespace, collection) },
		func() error { return r.backend.CreateCollection(ctx, namespace, collection, desc) },
	)
	if err != nil {
		return nil, err
	}
	if created {
		r.collector.IncCollectionCreated()
	}

	return &Collection{Namespace: namespace, Name: collection, Descriptor: desc}, nil
}

// ensure runs the check-then-create protocol for one resource.
// It reports whether this call created the resource.
func (r *Registry) ensure(ctx context.Context, kind, resource string, get, create func() error) (bool, error) {
	err := get()
	if err == nil {
		r.logger.Debug(kind+" exists", map[string]any{kind: resource})
		return false, nil
	}
	if !storage.IsDefinite(err, storage.ErrNotFound) {
		return false, fmt.Errorf("check %s %s: %w", kind, resource, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}

	r.logger.Info("creating "+kind, map[string]any{kind: resource, "backend": r.backend.Name()})
	if err := create(); err != nil {
		if storage.IsDefinite(err, storage.ErrAlreadyExists) {
			r.logger.Info(kind+" created concurrently", map[string]any{kind: resource})
			return false, nil
		}
		return false, fmt.Errorf("create %s %s: %w", kind, resource, err)
	}
	r.logger.Info("created "+kind, map[string]any{kind: resource})
	return true, nil
}
