package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
	"github.com/custodia-labs/bikeindex-cli/internal/core/ports/driven"
	"github.com/custodia-labs/bikeindex-cli/internal/logger"
)

// GrantKey is the secure store key holding the serialised grant.
const GrantKey = "bikeindex.oauth.grant"

// TokenStore holds the current grant.
//
// Reads are wait-free snapshots of the last fully-written grant. Writes are
// serialised and persist the grant to the secure store.
type TokenStore struct {
	secure driven.SecureStore
	clock  driven.Clock

	mu    sync.Mutex
	grant atomic.Pointer[domain.TokenGrant]
}

// NewTokenStore creates a token store and loads any persisted grant.
// A corrupt blob is discarded rather than failing startup.
func NewTokenStore(secure driven.SecureStore, clock driven.Clock) (*TokenStore, error) {
	s := &TokenStore{
		secure: secure,
		clock:  clock,
	}

	data, err := secure.Get(GrantKey)
	if errors.Is(err, domain.ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load grant: %w", err)
	}

	var grant domain.TokenGrant
	if err := json.Unmarshal(data, &grant); err != nil {
		logger.Warn("discarding unreadable stored grant: %v", err)
		if delErr := secure.Delete(GrantKey); delErr != nil {
			return nil, fmt.Errorf("delete unreadable grant: %w", delErr)
		}
		return s, nil
	}
	s.grant.Store(&grant)

	return s, nil
}

// Grant returns a copy of the current grant, or nil.
func (s *TokenStore) Grant() *domain.TokenGrant {
	g := s.grant.Load()
	if g == nil {
		return nil
	}
	return cloneGrant(g)
}

// BearerToken returns the access token if the grant is still valid.
// An absent or expired grant yields "".
func (s *TokenStore) BearerToken() string {
	g := s.grant.Load()
	if !g.IsValid(s.clock.Now()) {
		return ""
	}
	return g.AccessToken
}

// IsValid reports whether the current grant is unexpired.
func (s *TokenStore) IsValid() bool {
	return s.grant.Load().IsValid(s.clock.Now())
}

// Store replaces the grant and persists it.
// The in-memory grant is replaced even if persisting fails.
func (s *TokenStore) Store(grant *domain.TokenGrant) error {
	if grant == nil || grant.AccessToken == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g := cloneGrant(grant)
	s.grant.Store(g)

	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal grant: %w", err)
	}
	if err := s.secure.Set(GrantKey, data); err != nil {
		return fmt.Errorf("persist grant: %w", err)
	}
	return nil
}

// Clear drops the grant from memory first, then from the secure store.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.grant.Store(nil)
	if err := s.secure.Delete(GrantKey); err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}
	return nil
}

func cloneGrant(g *domain.TokenGrant) *domain.TokenGrant {
	c := *g
	c.Scopes = append([]domain.Scope(nil), g.Scopes...)
	return &c
}
