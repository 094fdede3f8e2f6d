// Package iox provides I/O helpers for resource cleanup.
package iox

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"
)

// DiscardClose closes c and discards the error.
// Use in defer statements where close errors are unactionable:
//
//	defer iox.DiscardClose(f)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c.
// Designed for t.Cleanup registration:
//
//	t.Cleanup(iox.CloseFunc(client))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// TempFile is a scoped temporary file that is removed exactly once,
// no matter how many exit paths call Remove.
type TempFile struct {
	path string
	once sync.Once
	err  error
}

// CreateTemp creates an empty temporary file matching pattern and closes it.
// The caller owns the returned handle and must call Remove.
func CreateTemp(pattern string) (*TempFile, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return nil, err
	}
	return &TempFile{path: f.Name()}, nil
}

// Path returns the file's location.
func (t *TempFile) Path() string { return t.path }

// Remove deletes the file. Only the first call touches the filesystem;
// later calls return the first result. A file already gone is not an error.
func (t *TempFile) Remove() error {
	t.once.Do(func() {
		err := os.Remove(t.path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			t.err = err
		}
	})
	return t.err
}
