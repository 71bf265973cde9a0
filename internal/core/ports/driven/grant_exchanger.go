package driven

import (
	"context"

	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
)

// GrantExchanger talks to the OAuth token endpoint.
type GrantExchanger interface {
	// ExchangeCode trades an authorization code for a grant.
	ExchangeCode(ctx context.Context, code string) (*domain.TokenGrant, error)

	// RefreshGrant trades a refresh token for a new grant.
	RefreshGrant(ctx context.Context, refreshToken string) (*domain.TokenGrant, error)

	// RevokeSession calls the server logout endpoint.
	RevokeSession(ctx context.Context) error
}
