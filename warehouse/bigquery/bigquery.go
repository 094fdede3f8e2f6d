// Package bigquery implements the warehouse backend on Google BigQuery.
// Namespaces are datasets and collections are tables.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/kewos554321/blaze4harbor/schema"
	"github.com/kewos554321/blaze4harbor/storage"
	"github.com/kewos554321/blaze4harbor/warehouse"
)

// DefaultLocation is the dataset location used when none is configured.
const DefaultLocation = "US"

// Config configures the BigQuery backend.
type Config struct {
	// Project is the GCP project id (required).
	Project string
	// Location is applied to datasets this backend creates.
	Location string
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Project == "" {
		return errors.New("bigquery project is required")
	}
	return nil
}

// Backend is a warehouse.Backend over a BigQuery client.
// Credentials come from Application Default Credentials.
type Backend struct {
	client   *bigquery.Client
	location string
}

// Verify Backend implements warehouse.Backend.
var _ warehouse.Backend = (*Backend)(nil)

// New creates a BigQuery backend.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := bigquery.NewClient(ctx, cfg.Project)
	if err != nil {
		return nil, fmt.Errorf("failed to create BigQuery client: %w", err)
	}
	location := cfg.Location
	if location == "" {
		location = DefaultLocation
	}
	return &Backend{client: client, location: location}, nil
}

// Name implements warehouse.Backend.
func (b *Backend) Name() string { return "bigquery" }

// GetNamespace implements warehouse.Backend.
func (b *Backend) GetNamespace(ctx context.Context, namespace string) error {
	_, err := b.client.Dataset(namespace).Metadata(ctx)
	return classify("get_dataset", namespace, err)
}

// CreateNamespace implements warehouse.Backend.
func (b *Backend) CreateNamespace(ctx context.Context, namespace string) error {
	err := b.client.Dataset(namespace).Create(ctx, &bigquery.DatasetMetadata{Location: b.location})
	return classify("create_dataset", namespace, err)
}

// GetCollection implements warehouse.Backend.
func (b *Backend) GetCollection(ctx context.Context, namespace, collection string) error {
	_, err := b.client.Dataset(namespace).Table(collection).Metadata(ctx)
	return classify("get_table", namespace+"."+collection, err)
}

// CreateCollection implements warehouse.Backend.
func (b *Backend) CreateCollection(ctx context.Context, namespace, collection string, desc *schema.Descriptor) error {
	meta := &bigquery.TableMetadata{
		Schema:      ToSchema(desc),
		Description: fmt.Sprintf("%s schema v%d", desc.Name, desc.Version),
		Labels:      map[string]string{"schema_version": fmt.Sprintf("v%d", desc.Version)},
	}
	err := b.client.Dataset(namespace).Table(collection).Create(ctx, meta)
	return classify("create_table", namespace+"."+collection, err)
}

// InsertRow implements warehouse.Backend via the streaming insert API.
// insertID enables BigQuery's best-effort deduplication.
func (b *Backend) InsertRow(ctx context.Context, namespace, collection string, row schema.Row, insertID string) ([]string, error) {
	inserter := b.client.Dataset(namespace).Table(collection).Inserter()
	err := inserter.Put(ctx, &rowSaver{row: row, insertID: insertID})
	return splitInsertError(namespace+"."+collection, err)
}

// Close implements warehouse.Backend.
func (b *Backend) Close() error {
	return b.client.Close()
}

// rowSaver adapts a mapped row to bigquery.ValueSaver.
type rowSaver struct {
	row      schema.Row
	insertID string
}

// Save implements bigquery.ValueSaver.
func (s *rowSaver) Save() (map[string]bigquery.Value, string, error) {
	return toValues(s.row), s.insertID, nil
}

// toValues converts a row, recursing into records and repeated records.
// Null fields are omitted so BigQuery applies its own NULL default.
func toValues(row schema.Row) map[string]bigquery.Value {
	out := make(map[string]bigquery.Value, len(row))
	for k, v := range row {
		if v == nil {
			continue
		}
		out[k] = toValue(v)
	}
	return out
}

func toValue(v any) bigquery.Value {
	switch val := v.(type) {
	case schema.Row:
		return toValues(val)
	case []any:
		out := make([]bigquery.Value, 0, len(val))
		for _, elem := range val {
			out = append(out, toValue(elem))
		}
		return out
	default:
		return val
	}
}

// splitInsertError separates per-row rejections from call-level failures.
func splitInsertError(resource string, err error) ([]string, error) {
	if err == nil {
		return []string{}, nil
	}
	var multi bigquery.PutMultiError
	if errors.As(err, &multi) {
		msgs := make([]string, 0, len(multi))
		for _, rowErr := range multi {
			msgs = append(msgs, rowErr.Error())
		}
		return msgs, nil
	}
	return nil, classify("insert", resource, err)
}

// classify translates googleapi status codes into storage sentinels.
func classify(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return storage.NewStorageError(storage.ErrNotFound, op, resource, err)
		case http.StatusConflict:
			return storage.NewStorageError(storage.ErrAlreadyExists, op, resource, err)
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
