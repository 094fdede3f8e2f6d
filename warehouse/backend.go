// Package warehouse publishes result artifacts to a structured, schema-typed store.
//
// A Backend maps the store's containers onto two levels: a namespace (BigQuery
// dataset, Postgres schema, lode store root) holding collections (tables,
// lode datasets) that carry the schema. The Registry provisions both levels
// idempotently; the Uploader inserts exactly one row per publish.
package warehouse

import (
	"context"

	"github.com/kewos554321/blaze4harbor/schema"
)

// Backend is the minimal surface a structured store must provide.
//
// Lookups report absence with an error matching storage.ErrNotFound. Creates
// report a lost race with an error matching storage.ErrAlreadyExists.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	GetNamespace(ctx context.Context, namespace string) error
	CreateNamespace(ctx context.Context, namespace string) error
	GetCollection(ctx context.Context, namespace, collection string) error
	CreateCollection(ctx context.Context, namespace, collection string, desc *schema.Descriptor) error
	// InsertRow submits one row. Row-level rejections are returned as
	// messages; the error is reserved for call-level failures.
	InsertRow(ctx context.Context, namespace, collection string, row schema.Row, insertID string) ([]string, error)
	Close() error
}

// Collection is a provisioned collection handle.
type Collection struct {
	Namespace  string
	Name       string
	Descriptor *schema.Descriptor
}

// Target returns "namespace.collection".
func (c *Collection) Target() string {
	return c.Namespace + "." + c.Name
}
