package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/kewos554321/blaze4harbor/iox"
	"github.com/kewos554321/blaze4harbor/log"
	"github.com/kewos554321/blaze4harbor/types"
)

// ErrNoFiles indicates the walked directory held no regular files.
// An empty tree usually means a misconfigured directory, so it fails the upload.
var ErrNoFiles = errors.New("no files to upload")

// TreeUploader uploads every regular file under a directory.
type TreeUploader struct {
	bucket Bucket
	// prefix is prepended to every key. Empty by default.
	prefix string
	logger *log.Logger
}

// NewTreeUploader creates an uploader over bucket. prefix may be empty.
func NewTreeUploader(bucket Bucket, prefix string, logger *log.Logger) *TreeUploader {
	if logger == nil {
		logger = log.Nop()
	}
	return &TreeUploader{bucket: bucket, prefix: prefix, logger: logger}
}

// ObjectKey returns the remote key for the file at rel under dir:
// "<prefix>/<name of dir>/<rel>" with forward slashes on every host OS.
// A relative dir such as "." is named after the directory it resolves to.
func ObjectKey(prefix, dir, rel string) string {
	return path.Join(prefix, types.ResultDirName(dir), filepath.ToSlash(rel))
}

// UploadTree uploads every regular file under dir.
//
// Symlinks and directories are not uploaded. A failed file is recorded and
// the walk continues. The outcome succeeds only if at least one file was
// found and none failed.
func (u *TreeUploader) UploadTree(ctx context.Context, dir string) *types.UploadOutcome {
	target := u.bucket.Name()
	info, err := os.Stat(dir)
	if err != nil {
		return types.FailedOutcome(target, fmt.Errorf("result directory %s: %w", dir, err))
	}
	if !info.IsDir() {
		return types.FailedOutcome(target, fmt.Errorf("result directory %s: not a directory", dir))
	}

	outcome := &types.UploadOutcome{Target: target}
	walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Unreadable entry: record it and keep walking the rest.
			rel, _ := filepath.Rel(dir, p)
			outcome.AddError(ObjectKey(u.prefix, dir, rel), err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			outcome.AddError(p, err)
			return nil
		}
		key := ObjectKey(u.prefix, dir, rel)
		outcome.Attempted++

		size, err := u.uploadFile(ctx, p, key)
		if err != nil {
			u.logger.Error("failed to upload file", map[string]any{
				"file":   p,
				"bucket": target,
				"key":    key,
				"error":  err,
			})
			outcome.AddError(key, err)
			return nil
		}
		outcome.Bytes += size
		u.logger.Info("uploaded file", map[string]any{"bucket": target, "key": key, "bytes": size})
		return nil
	})
	if walkErr != nil {
		outcome.Err = walkErr
	} else if outcome.Attempted == 0 && outcome.Failed() == 0 {
		outcome.Err = fmt.Errorf("%w under %s", ErrNoFiles, dir)
	}
	outcome.Succeeded = outcome.Err == nil && outcome.Attempted > 0 && outcome.Failed() == 0
	return outcome
}

func (u *TreeUploader) uploadFile(ctx context.Context, p, key string) (int64, error) {
	f, err := os.Open(p)
	if err != nil {
		return 0, err
	}
	defer iox.DiscardClose(f)

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if err := u.bucket.Put(ctx, key, f, info.Size(), ContentType(p)); err != nil {
		return 0, err
	}
	return info.Size(), nil
}
