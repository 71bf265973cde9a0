package driven

import (
	"context"

	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
)

// BikeStore persists local copies of bike records.
type BikeStore interface {
	// Save stores or updates a bike.
	Save(ctx context.Context, bike domain.Bike) error

	// Get retrieves a bike by ID, or domain.ErrNotFound.
	Get(ctx context.Context, id int64) (*domain.Bike, error)

	// List returns all stored bikes ordered by ID.
	List(ctx context.Context) ([]domain.Bike, error)
}
