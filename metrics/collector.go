// Package metrics provides per-run publish counters.
//
// The Collector accumulates counters during a single run. Upload outcomes are
// absorbed once per publish branch rather than recorded per item, so a branch
// is never double-counted.
package metrics

import (
	"sync"

	"github.com/kewos554321/blaze4harbor/types"
)

// Snapshot is an immutable point-in-time view of the publish counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Structured store
	RowsInserted       int64 `json:"rows_inserted" yaml:"rows_inserted"`
	RowsFailed         int64 `json:"rows_failed" yaml:"rows_failed"`
	NamespacesCreated  int64 `json:"namespaces_created" yaml:"namespaces_created"`
	CollectionsCreated int64 `json:"collections_created" yaml:"collections_created"`

	// Blob store
	FilesUploaded int64 `json:"files_uploaded" yaml:"files_uploaded"`
	FilesFailed   int64 `json:"files_failed" yaml:"files_failed"`
	BytesUploaded int64 `json:"bytes_uploaded" yaml:"bytes_uploaded"`

	// Dimensions (informational, set at construction)
	StructuredBackend string `json:"structured_backend" yaml:"structured_backend"`
	BlobBackend       string `json:"blob_backend" yaml:"blob_backend"`
	RunID             string `json:"run_id" yaml:"run_id"`
}

// Fields flattens the snapshot into log fields.
func (s Snapshot) Fields() map[string]any {
	return map[string]any{
		"rows_inserted":       s.RowsInserted,
		"rows_failed":         s.RowsFailed,
		"namespaces_created":  s.NamespacesCreated,
		"collections_created": s.CollectionsCreated,
		"files_uploaded":      s.FilesUploaded,
		"files_failed":        s.FilesFailed,
		"bytes_uploaded":      s.BytesUploaded,
	}
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	rowsInserted       int64
	rowsFailed         int64
	namespacesCreated  int64
	collectionsCreated int64

	filesUploaded int64
	filesFailed   int64
	bytesUploaded int64

	structuredBackend string
	blobBackend       string
	runID             string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(structuredBackend, blobBackend, runID string) *Collector {
	return &Collector{
		structuredBackend: structuredBackend,
		blobBackend:       blobBackend,
		runID:             runID,
	}
}

// IncNamespaceCreated records a namespace provisioned by this run.
func (c *Collector) IncNamespaceCreated() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.namespacesCreated++
	c.mu.Unlock()
}

// IncCollectionCreated records a collection provisioned by this run.
func (c *Collector) IncCollectionCreated() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.collectionsCreated++
	c.mu.Unlock()
}

// AbsorbStructured folds a structured-store insert outcome into the counters.
// A call-level failure counts every attempted row as failed.
func (c *Collector) AbsorbStructured(o *types.UploadOutcome) {
	if c == nil || o == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if o.Succeeded {
		c.rowsInserted += int64(o.Attempted)
		return
	}
	failed := int64(o.Attempted)
	if failed == 0 {
		failed = 1
	}
	c.rowsFailed += failed
}

// AbsorbBlob folds a blob-store tree upload outcome into the counters.
func (c *Collector) AbsorbBlob(o *types.UploadOutcome) {
	if c == nil || o == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	failed := int64(o.Failed())
	uploaded := int64(o.Attempted) - failed
	if uploaded < 0 {
		uploaded = 0
	}
	c.filesUploaded += uploaded
	c.filesFailed += failed
	c.bytesUploaded += o.Bytes
}

// Snapshot returns an immutable copy of all current metric values.
// Returns a zero Snapshot if c is nil.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		RowsInserted:       c.rowsInserted,
		RowsFailed:         c.rowsFailed,
		NamespacesCreated:  c.namespacesCreated,
		CollectionsCreated: c.collectionsCreated,
		FilesUploaded:      c.filesUploaded,
		FilesFailed:        c.filesFailed,
		BytesUploaded:      c.bytesUploaded,
		StructuredBackend:  c.structuredBackend,
		BlobBackend:        c.blobBackend,
		RunID:              c.runID,
	}
}
