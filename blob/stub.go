package blob

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/kewos554321/blaze4harbor/log"
)

// StubObject is one recorded upload.
type StubObject struct {
	Data        []byte
	ContentType string
}

// StubBucket is an in-process Bucket for tests and dry runs.
type StubBucket struct {
	mu      sync.Mutex
	name    string
	objects map[string]StubObject

	// FailKeys maps keys to the error their upload returns.
	FailKeys map[string]error
	// Logger, when set, logs each upload a real bucket would receive.
	Logger *log.Logger
}

// Verify StubBucket implements Bucket.
var _ Bucket = (*StubBucket)(nil)

// NewStubBucket creates an empty stub named name.
func NewStubBucket(name string) *StubBucket {
	return &StubBucket{name: name, objects: make(map[string]StubObject)}
}

// Name implements Bucket.
func (s *StubBucket) Name() string { return s.name }

// Put implements Bucket.
func (s *StubBucket) Put(_ context.Context, key string, body io.Reader, size int64, contentType string) error {
	s.mu.Lock()
	failErr := s.FailKeys[key]
	s.mu.Unlock()
	if failErr != nil {
		return failErr
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.objects[key] = StubObject{Data: data, ContentType: contentType}
	s.mu.Unlock()

	if s.Logger != nil {
		s.Logger.Info("dry-run: would upload object", map[string]any{
			"bucket":       s.name,
			"key":          key,
			"bytes":        size,
			"content_type": contentType,
		})
	}
	return nil
}

// Close implements Bucket.
func (s *StubBucket) Close() error { return nil }

// Keys returns the uploaded keys in sorted order.
func (s *StubBucket) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Object returns the recorded upload for key.
func (s *StubBucket) Object(key string) (StubObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[key]
	return o, ok
}
