package domain

import (
	"strings"
	"time"
)

// Scope is a named permission requested during authorisation.
type Scope string

// Known scopes, in the order the API documents them.
const (
	ScopeReadUser   Scope = "read_user"
	ScopeWriteUser  Scope = "write_user"
	ScopeReadBikes  Scope = "read_bikes"
	ScopeWriteBikes Scope = "write_bikes"
)

// AllScopes returns every known scope in canonical order.
func AllScopes() []Scope {
	return []Scope{ScopeReadUser, ScopeWriteUser, ScopeReadBikes, ScopeWriteBikes}
}

// IsKnown reports whether s is one of the known scopes.
func (s Scope) IsKnown() bool {
	for _, known := range AllScopes() {
		if s == known {
			return true
		}
	}
	return false
}

// ParseScopes splits a space-delimited scope string.
// Unrecognised tokens are dropped; order is preserved.
func ParseScopes(raw string) []Scope {
	fields := strings.Fields(raw)
	scopes := make([]Scope, 0, len(fields))
	for _, f := range fields {
		s := Scope(f)
		if s.IsKnown() {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

// JoinScopes joins scopes with sep.
// Use " " for the wire form and "+" for the authorise query form.
func JoinScopes(scopes []Scope, sep string) string {
	parts := make([]string, len(scopes))
	for i, s := range scopes {
		parts[i] = string(s)
	}
	return strings.Join(parts, sep)
}

// TokenGrant is the full OAuth2 result set held by the token store.
type TokenGrant struct {
	// AccessToken is the bearer token for API access.
	AccessToken string `json:"access_token"`
	// TokenType is typically "Bearer".
	TokenType string `json:"token_type"`
	// ExpiresIn is the lifetime of the access token.
	ExpiresIn time.Duration `json:"expires_in"`
	// RefreshToken is used to obtain a new grant.
	RefreshToken string `json:"refresh_token"`
	// Scopes granted by the server.
	Scopes []Scope `json:"scopes"`
	// CreatedAt is when the server issued the grant.
	CreatedAt time.Time `json:"created_at"`
}

// Expiration returns CreatedAt + ExpiresIn.
func (g *TokenGrant) Expiration() time.Time {
	return g.CreatedAt.Add(g.ExpiresIn)
}

// IsValid reports whether now is strictly before the expiration.
func (g *TokenGrant) IsValid(now time.Time) bool {
	if g == nil || g.AccessToken == "" {
		return false
	}
	return now.Before(g.Expiration())
}

// HasScope reports whether the grant includes s.
func (g *TokenGrant) HasScope(s Scope) bool {
	for _, granted := range g.Scopes {
		if granted == s {
			return true
		}
	}
	return false
}

// SessionState is the token lifecycle state.
type SessionState int

// Lifecycle states.
const (
	StateUnauthenticated SessionState = iota
	StateAuthenticating
	StateAuthenticated
	StateRefreshing
)

func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}
