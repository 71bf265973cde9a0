package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore(t *testing.T) {
	store := NewConfigStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.values)
}

func TestConfigStore_Set_Update(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("api.host", "https://a.example/"))
	require.NoError(t, store.Set("api.host", "https://b.example/"))

	assert.Equal(t, "https://b.example/", store.GetString("api.host"))
}

func TestConfigStore_GetString_WrongType(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("oauth.scopes", []string{"read_user"}))

	assert.Equal(t, "", store.GetString("oauth.scopes"))
	assert.Equal(t, "", store.GetString("missing"))
}

// TestConfigStore_GetStringSlice tests both decoded TOML arrays and native slices
func TestConfigStore_GetStringSlice(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("native", []string{"a", "b"}))
	require.NoError(t, store.Set("decoded", []any{"a", 1, "b"}))
	require.NoError(t, store.Set("scalar", "a"))

	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("native"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("decoded"))
	assert.Nil(t, store.GetStringSlice("scalar"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_Path(t *testing.T) {
	assert.Equal(t, ":memory:", NewConfigStore().Path())
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Set("key", "value")
		}()
		go func() {
			defer wg.Done()
			_ = store.GetString("key")
		}()
	}
	wg.Wait()

	assert.Equal(t, "value", store.GetString("key"))
}
