package bikeindex

import (
	"context"
	"fmt"

	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
	"github.com/custodia-labs/bikeindex-cli/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.GrantExchanger = (*Client)(nil)

// ExchangeCode trades an authorization code for a grant.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*domain.TokenGrant, error) {
	resp, err := AuthenticatedPost(ctx, c, ExchangeCode(c.cfg.ClientID, c.cfg.ClientSecret, c.cfg.RedirectURI, code))
	if err != nil {
		return nil, err
	}
	return c.grant(resp)
}

// RefreshGrant trades a refresh token for a new grant.
func (c *Client) RefreshGrant(ctx context.Context, refreshToken string) (*domain.TokenGrant, error) {
	if refreshToken == "" {
		return nil, domain.ErrNoRefreshToken
	}
	resp, err := AuthenticatedPost(ctx, c, RefreshToken(c.cfg.ClientID, refreshToken))
	if err != nil {
		return nil, err
	}
	return c.grant(resp)
}

// RevokeSession calls the logout endpoint.
func (c *Client) RevokeSession(ctx context.Context) error {
	_, err := AuthenticatedGet(ctx, c, Logout())
	return err
}

func (c *Client) grant(resp *TokenResponse) (*domain.TokenGrant, error) {
	if resp.AccessToken == "" {
		return nil, &domain.DecodeError{Shape: "TokenResponse", Err: fmt.Errorf("missing access_token")}
	}
	return resp.Grant(c.clock.Now()), nil
}
