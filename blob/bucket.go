// Package blob publishes result directories to a path-addressed blob store.
package blob

import (
	"context"
	"io"
	"mime"
	"path/filepath"
	"strings"
)

// Bucket is the minimal surface a blob store must provide.
type Bucket interface {
	// Name identifies the bucket in logs and outcomes.
	Name() string
	// Put uploads size bytes from body to key.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Close() error
}

// defaultContentType is used when the extension is unknown.
const defaultContentType = "application/octet-stream"

// ContentType guesses a content type from the file extension.
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".log", ".out", ".err":
		return "text/plain; charset=utf-8"
	case ".jsonl":
		return "application/x-ndjson"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return defaultContentType
}
