package warehouse

import (
	"context"
	"fmt"
	"sync"

	"github.com/kewos554321/blaze4harbor/log"
	"github.com/kewos554321/blaze4harbor/schema"
	"github.com/kewos554321/blaze4harbor/storage"
)

// StubBackend is an in-process Backend for tests and dry runs.
// It records every provisioning call and inserted row.
type StubBackend struct {
	mu sync.Mutex

	namespaces  map[string]struct{}
	collections map[string]*schema.Descriptor
	rows        map[string][]StubRow

	// NamespaceCreates and CollectionCreates count successful creates.
	NamespaceCreates  int
	CollectionCreates int

	// GetErr, when set, is returned by every lookup.
	GetErr error
	// CreateErr, when set, is returned by every create.
	CreateErr error
	// InsertErr, when set, fails InsertRow at call level.
	InsertErr error
	// RowErrors, when set, are returned as row-level rejections.
	RowErrors []string
	// RaceOnCreate simulates a concurrent provisioner: the first lookup of
	// each resource reports absence even though it exists.
	RaceOnCreate bool

	// Logger, when set, logs what a real backend would do.
	Logger *log.Logger
}

// StubRow is one recorded insert.
type StubRow struct {
	InsertID string
	Row      schema.Row
}

// Verify StubBackend implements Backend.
var _ Backend = (*StubBackend)(nil)

// NewStubBackend creates an empty stub.
func NewStubBackend() *StubBackend {
	return &StubBackend{
		namespaces:  make(map[string]struct{}),
		collections: make(map[string]*schema.Descriptor),
		rows:        make(map[string][]StubRow),
	}
}

// Name implements Backend.
func (s *StubBackend) Name() string { return "stub" }

// GetNamespace implements Backend.
func (s *StubBackend) GetNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return s.GetErr
	}
	if _, ok := s.namespaces[namespace]; !ok || s.RaceOnCreate {
		return storage.NewStorageError(storage.ErrNotFound, "get_namespace", namespace, nil)
	}
	return nil
}

// CreateNamespace implements Backend.
func (s *StubBackend) CreateNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	if _, ok := s.namespaces[namespace]; ok {
		return storage.NewStorageError(storage.ErrAlreadyExists, "create_namespace", namespace, nil)
	}
	s.namespaces[namespace] = struct{}{}
	s.NamespaceCreates++
	s.logf("dry-run: would create namespace %s", namespace)
	return nil
}

// GetCollection implements Backend.
func (s *StubBackend) GetCollection(_ context.Context, namespace, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return s.GetErr
	}
	if _, ok := s.collections[namespace+"."+collection]; !ok || s.RaceOnCreate {
		return storage.NewStorageError(storage.ErrNotFound, "get_collection", namespace+"."+collection, nil)
	}
	return nil
}

// CreateCollection implements Backend.
func (s *StubBackend) CreateCollection(_ context.Context, namespace, collection string, desc *schema.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	key := namespace + "." + collection
	if _, ok := s.namespaces[namespace]; !ok {
		return storage.NewStorageError(storage.ErrNotFound, "create_collection", namespace, nil)
	}
	if _, ok := s.collections[key]; ok {
		return storage.NewStorageError(storage.ErrAlreadyExists, "create_collection", key, nil)
	}
	s.collections[key] = desc
	s.CollectionCreates++
	s.logf("dry-run: would create collection %s (%s v%d, %d fields)", key, desc.Name, desc.Version, len(desc.Fields))
	return nil
}

// InsertRow implements Backend.
func (s *StubBackend) InsertRow(_ context.Context, namespace, collection string, row schema.Row, insertID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		return nil, s.InsertErr
	}
	key := namespace + "." + collection
	if _, ok := s.collections[key]; !ok {
		return nil, storage.NewStorageError(storage.ErrNotFound, "insert", key, nil)
	}
	if len(s.RowErrors) > 0 {
		return s.RowErrors, nil
	}
	s.rows[key] = append(s.rows[key], StubRow{InsertID: insertID, Row: row})
	s.logf("dry-run: would insert row %s into %s", insertID, key)
	return []string{}, nil
}

// Close implements Backend.
func (s *StubBackend) Close() error { return nil }

// Rows returns the rows recorded for namespace.collection.
func (s *StubBackend) Rows(namespace, collection string) []StubRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StubRow(nil), s.rows[namespace+"."+collection]...)
}

// Schema returns the descriptor a collection was created with.
func (s *StubBackend) Schema(namespace, collection string) (*schema.Descriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.collections[namespace+"."+collection]
	return d, ok
}

func (s *StubBackend) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Info(fmt.Sprintf(format, args...), nil)
	}
}
