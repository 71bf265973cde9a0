package driven

import (
	"context"

	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
)

// UploadStore persists pending background uploads so completions can be
// attributed after a restart.
type UploadStore interface {
	// Save stores a pending upload keyed by TaskID.
	Save(ctx context.Context, upload domain.PendingUpload) error

	// Get retrieves a pending upload, or domain.ErrNotFound.
	Get(ctx context.Context, taskID string) (*domain.PendingUpload, error)

	// List returns all pending uploads, oldest first.
	List(ctx context.Context) ([]domain.PendingUpload, error)

	// Delete removes a pending upload.
	Delete(ctx context.Context, taskID string) error
}
