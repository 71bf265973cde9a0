package file

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
)

func noEnv(string) string { return "" }

func TestLoadSessionConfig_Defaults(t *testing.T) {
	store := memory.NewConfigStore()
	require.NoError(t, store.Set(KeyClientID, "cid"))

	cfg, err := loadSessionConfig(store, noEnv)

	require.NoError(t, err)
	assert.Equal(t, DefaultHost, cfg.Host.String())
	assert.Equal(t, DefaultRedirectURI, cfg.RedirectURI)
	assert.Equal(t, domain.AllScopes(), cfg.Scopes)
	assert.Equal(t, "cid", cfg.ClientID)
}

func TestLoadSessionConfig_FromStore(t *testing.T) {
	store := memory.NewConfigStore()
	require.NoError(t, store.Set(KeyHost, "https://example.org/"))
	require.NoError(t, store.Set(KeyClientID, "cid"))
	require.NoError(t, store.Set(KeyClientSecret, "secret"))
	require.NoError(t, store.Set(KeyRedirectURI, "http://127.0.0.1:9000/cb"))
	require.NoError(t, store.Set(KeyScopes, []any{"read_bikes", "admin", "read_user"}))

	cfg, err := loadSessionConfig(store, noEnv)

	require.NoError(t, err)
	assert.Equal(t, "https://example.org/", cfg.Host.String())
	assert.Equal(t, "secret", cfg.ClientSecret)
	assert.Equal(t, "http://127.0.0.1:9000/cb", cfg.RedirectURI)
	assert.Equal(t, []domain.Scope{domain.ScopeReadBikes, domain.ScopeReadUser}, cfg.Scopes)
}

// TestLoadSessionConfig_EnvOverrides tests environment variables beat the file
func TestLoadSessionConfig_EnvOverrides(t *testing.T) {
	store := memory.NewConfigStore()
	require.NoError(t, store.Set(KeyHost, "https://file.example/"))
	require.NoError(t, store.Set(KeyClientID, "file-id"))

	env := map[string]string{
		"BIKEINDEX_HOST":          "https://env.example/",
		"BIKEINDEX_CLIENT_ID":     "env-id",
		"BIKEINDEX_CLIENT_SECRET": "env-secret",
	}
	cfg, err := loadSessionConfig(store, func(k string) string { return env[k] })

	require.NoError(t, err)
	assert.Equal(t, "https://env.example/", cfg.Host.String())
	assert.Equal(t, "env-id", cfg.ClientID)
	assert.Equal(t, "env-secret", cfg.ClientSecret)
}

func TestLoadSessionConfig_MissingClientID(t *testing.T) {
	_, err := loadSessionConfig(memory.NewConfigStore(), noEnv)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoadSessionConfig_RelativeHost(t *testing.T) {
	store := memory.NewConfigStore()
	require.NoError(t, store.Set(KeyHost, "bikeindex.org"))
	require.NoError(t, store.Set(KeyClientID, "cid"))

	_, err := loadSessionConfig(store, noEnv)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
