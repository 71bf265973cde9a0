package driving

import (
	"context"

	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
)

// Session drives the OAuth lifecycle for the signed-in user.
type Session interface {
	// AuthorizeURL returns the browser URL that starts the authorization-code flow.
	AuthorizeURL(state string) string

	// Resume arms refresh for a grant loaded from storage.
	Resume()

	// RefreshNow exchanges the refresh token immediately.
	RefreshNow(ctx context.Context) error

	// Authenticate exchanges an authorization code for a grant and arms refresh.
	Authenticate(ctx context.Context, code string) error

	// WaitAuthenticated blocks until an asynchronously received code has
	// been exchanged, returning the exchange error.
	WaitAuthenticated(ctx context.Context) error

	// SignOut clears the grant and cancels any armed refresh.
	SignOut(ctx context.Context) error

	// State returns the current lifecycle state.
	State() domain.SessionState

	// Grant returns a snapshot of the current grant, or nil.
	Grant() *domain.TokenGrant
}
