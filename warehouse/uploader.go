package warehouse

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/kewos554321/blaze4harbor/schema"
	"github.com/kewos554321/blaze4harbor/types"
)

// Uploader inserts mapped rows into a provisioned collection.
type Uploader struct {
	backend Backend
	// newID generates the per-row insert id used for store-side deduplication.
	newID func() string
}

// NewUploader creates an uploader over backend.
func NewUploader(backend Backend) *Uploader {
	return &Uploader{backend: backend, newID: uuid.NewString}
}

// Insert submits exactly one row.
//
// Success requires an explicitly empty row-error list and no call-level error.
// Every failure keeps the underlying message.
func (u *Uploader) Insert(ctx context.Context, c *Collection, row schema.Row) *types.UploadOutcome {
	insertID := u.newID()
	outcome := &types.UploadOutcome{Target: c.Target(), Attempted: 1}

	rowErrs, err := u.backend.InsertRow(ctx, c.Namespace, c.Name, row, insertID)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	for _, msg := range rowErrs {
		outcome.AddError(insertID, errors.New(msg))
	}
	outcome.Succeeded = outcome.Failed() == 0
	return outcome
}
