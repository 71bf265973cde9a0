package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
	"github.com/custodia-labs/bikeindex-cli/internal/core/ports/driven"
)

// Ensure UploadStore implements the interface.
var _ driven.UploadStore = (*UploadStore)(nil)

// UploadStore is an in-memory implementation of driven.UploadStore.
type UploadStore struct {
	mu      sync.RWMutex
	uploads map[string]domain.PendingUpload
}

// NewUploadStore creates a new in-memory upload store.
func NewUploadStore() *UploadStore {
	return &UploadStore{
		uploads: make(map[string]domain.PendingUpload),
	}
}

// Save stores a pending upload.
func (s *UploadStore) Save(_ context.Context, upload domain.PendingUpload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[upload.TaskID] = upload
	return nil
}

// Get retrieves a pending upload by task ID.
func (s *UploadStore) Get(_ context.Context, taskID string) (*domain.PendingUpload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	upload, ok := s.uploads[taskID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &upload, nil
}

// List returns all pending uploads, oldest first.
func (s *UploadStore) List(_ context.Context) ([]domain.PendingUpload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.PendingUpload, 0, len(s.uploads))
	for _, upload := range s.uploads {
		result = append(result, upload)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	return result, nil
}

// Delete removes a pending upload.
func (s *UploadStore) Delete(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.uploads, taskID)
	return nil
}
