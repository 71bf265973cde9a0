package services

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driven/clock"
	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testGrant(access string, lifetime time.Duration) *domain.TokenGrant {
	return &domain.TokenGrant{
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    lifetime,
		RefreshToken: "refresh-" + access,
		Scopes:       domain.AllScopes(),
		CreatedAt:    epoch,
	}
}

func TestNewTokenStore_Empty(t *testing.T) {
	store, err := NewTokenStore(memory.NewSecureStore(), clock.NewManual(epoch))

	require.NoError(t, err)
	assert.Nil(t, store.Grant())
	assert.False(t, store.IsValid())
	assert.Equal(t, "", store.BearerToken())
}

// TestNewTokenStore_LoadsPersisted tests the grant is read once at construction
func TestNewTokenStore_LoadsPersisted(t *testing.T) {
	secure := memory.NewSecureStore()
	data, err := json.Marshal(testGrant("abc", time.Hour))
	require.NoError(t, err)
	require.NoError(t, secure.Set(GrantKey, data))

	store, err := NewTokenStore(secure, clock.NewManual(epoch))

	require.NoError(t, err)
	require.NotNil(t, store.Grant())
	assert.Equal(t, "abc", store.Grant().AccessToken)
	assert.Equal(t, domain.AllScopes(), store.Grant().Scopes)
	assert.Equal(t, "abc", store.BearerToken())
}

// TestNewTokenStore_DiscardsCorruptBlob tests an unreadable grant is deleted
func TestNewTokenStore_DiscardsCorruptBlob(t *testing.T) {
	secure := memory.NewSecureStore()
	require.NoError(t, secure.Set(GrantKey, []byte("{not json")))

	store, err := NewTokenStore(secure, clock.NewManual(epoch))

	require.NoError(t, err)
	assert.Nil(t, store.Grant())
	_, err = secure.Get(GrantKey)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTokenStore_StorePersists(t *testing.T) {
	secure := memory.NewSecureStore()
	store, err := NewTokenStore(secure, clock.NewManual(epoch))
	require.NoError(t, err)

	require.NoError(t, store.Store(testGrant("abc", time.Hour)))

	reloaded, err := NewTokenStore(secure, clock.NewManual(epoch))
	require.NoError(t, err)
	assert.Equal(t, "abc", reloaded.BearerToken())
}

func TestTokenStore_StoreRejectsEmpty(t *testing.T) {
	store, err := NewTokenStore(memory.NewSecureStore(), clock.NewManual(epoch))
	require.NoError(t, err)

	assert.ErrorIs(t, store.Store(nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.Store(&domain.TokenGrant{}), domain.ErrInvalidInput)
}

// TestTokenStore_PersistFailureKeepsMemory tests the in-memory swap survives a write error
func TestTokenStore_PersistFailureKeepsMemory(t *testing.T) {
	secure := memory.NewSecureStore()
	secure.SetErr = errors.New("keychain locked")
	store, err := NewTokenStore(secure, clock.NewManual(epoch))
	require.NoError(t, err)

	err = store.Store(testGrant("abc", time.Hour))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "keychain locked")
	assert.Equal(t, "abc", store.BearerToken())
}

// TestTokenStore_BearerTokenHidesExpired tests an expired token never reaches callers
func TestTokenStore_BearerTokenHidesExpired(t *testing.T) {
	clk := clock.NewManual(epoch)
	store, err := NewTokenStore(memory.NewSecureStore(), clk)
	require.NoError(t, err)
	require.NoError(t, store.Store(testGrant("abc", time.Hour)))

	clk.Advance(59 * time.Minute)
	assert.Equal(t, "abc", store.BearerToken())

	clk.Advance(time.Minute)
	assert.Equal(t, "", store.BearerToken())
	assert.False(t, store.IsValid())
	assert.NotNil(t, store.Grant(), "the stale grant is still readable")
}

func TestTokenStore_GrantIsSnapshot(t *testing.T) {
	store, err := NewTokenStore(memory.NewSecureStore(), clock.NewManual(epoch))
	require.NoError(t, err)
	require.NoError(t, store.Store(testGrant("abc", time.Hour)))

	snapshot := store.Grant()
	snapshot.AccessToken = "mutated"
	snapshot.Scopes[0] = "mutated"

	assert.Equal(t, "abc", store.Grant().AccessToken)
	assert.Equal(t, domain.ScopeReadUser, store.Grant().Scopes[0])
}

func TestTokenStore_Clear(t *testing.T) {
	secure := memory.NewSecureStore()
	store, err := NewTokenStore(secure, clock.NewManual(epoch))
	require.NoError(t, err)
	require.NoError(t, store.Store(testGrant("abc", time.Hour)))

	require.NoError(t, store.Clear())

	assert.Nil(t, store.Grant())
	assert.Equal(t, "", store.BearerToken())
	assert.Equal(t, 0, secure.Len())
}

// TestTokenStore_ClearDropsMemoryOnDeleteError tests memory is cleared first
func TestTokenStore_ClearDropsMemoryOnDeleteError(t *testing.T) {
	secure := memory.NewSecureStore()
	store, err := NewTokenStore(secure, clock.NewManual(epoch))
	require.NoError(t, err)
	require.NoError(t, store.Store(testGrant("abc", time.Hour)))
	secure.DeleteErr = errors.New("io error")

	err = store.Clear()

	require.Error(t, err)
	assert.Equal(t, "", store.BearerToken())
}

// TestTokenStore_NoTornReads tests readers only ever see complete grants
func TestTokenStore_NoTornReads(t *testing.T) {
	store, err := NewTokenStore(memory.NewSecureStore(), clock.NewManual(epoch))
	require.NoError(t, err)
	require.NoError(t, store.Store(testGrant("a", time.Hour)))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			access := "a"
			if i%2 == 0 {
				access = "b"
			}
			_ = store.Store(testGrant(access, time.Hour))
		}
		close(stop)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				g := store.Grant()
				if !assert.NotNil(t, g) {
					return
				}
				assert.Equal(t, "refresh-"+g.AccessToken, g.RefreshToken)
			}
		}()
	}
	wg.Wait()
}
