package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
	"github.com/custodia-labs/bikeindex-cli/internal/core/ports/driven"
)

// Ensure BikeStore implements the interface.
var _ driven.BikeStore = (*BikeStore)(nil)

// BikeStore is an in-memory implementation of driven.BikeStore.
type BikeStore struct {
	mu    sync.RWMutex
	bikes map[int64]domain.Bike
}

// NewBikeStore creates a new in-memory bike store.
func NewBikeStore() *BikeStore {
	return &BikeStore{
		bikes: make(map[int64]domain.Bike),
	}
}

// Save stores or updates a bike.
func (s *BikeStore) Save(_ context.Context, bike domain.Bike) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bike.Images = append([]domain.Image(nil), bike.Images...)
	s.bikes[bike.ID] = bike
	return nil
}

// Get retrieves a bike by ID.
func (s *BikeStore) Get(_ context.Context, id int64) (*domain.Bike, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bike, ok := s.bikes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	bike.Images = append([]domain.Image(nil), bike.Images...)
	return &bike, nil
}

// List returns all stored bikes ordered by ID.
func (s *BikeStore) List(_ context.Context) ([]domain.Bike, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Bike, 0, len(s.bikes))
	for _, bike := range s.bikes {
		result = append(result, bike)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
