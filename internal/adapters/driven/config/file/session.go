package file

import (
	"fmt"
	"net/url"
	"os"

	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
	"github.com/custodia-labs/bikeindex-cli/internal/core/ports/driven"
)

// Config keys.
const (
	KeyHost         = "api.host"
	KeyClientID     = "oauth.client_id"
	KeyClientSecret = "oauth.client_secret"
	KeyRedirectURI  = "oauth.redirect_uri"
	KeyScopes       = "oauth.scopes"
)

// Defaults applied when neither the file nor the environment sets a value.
const (
	DefaultHost        = "https://bikeindex.org/"
	DefaultRedirectURI = "http://localhost:8976/oauth/callback"
)

// envOverrides maps environment variables onto config keys.
var envOverrides = map[string]string{
	"BIKEINDEX_HOST":          KeyHost,
	"BIKEINDEX_CLIENT_ID":     KeyClientID,
	"BIKEINDEX_CLIENT_SECRET": KeyClientSecret,
	"BIKEINDEX_REDIRECT_URI":  KeyRedirectURI,
}

// LoadSessionConfig builds the session configuration from store,
// with environment variables taking precedence.
func LoadSessionConfig(store driven.ConfigStore) (domain.SessionConfig, error) {
	return loadSessionConfig(store, os.Getenv)
}

func loadSessionConfig(store driven.ConfigStore, getenv func(string) string) (domain.SessionConfig, error) {
	values := map[string]string{
		KeyHost:         store.GetString(KeyHost),
		KeyClientID:     store.GetString(KeyClientID),
		KeyClientSecret: store.GetString(KeyClientSecret),
		KeyRedirectURI:  store.GetString(KeyRedirectURI),
	}
	for env, key := range envOverrides {
		if v := getenv(env); v != "" {
			values[key] = v
		}
	}

	if values[KeyHost] == "" {
		values[KeyHost] = DefaultHost
	}
	if values[KeyRedirectURI] == "" {
		values[KeyRedirectURI] = DefaultRedirectURI
	}

	host, err := url.Parse(values[KeyHost])
	if err != nil {
		return domain.SessionConfig{}, fmt.Errorf("%w: parse host: %v", domain.ErrInvalidInput, err)
	}

	scopes := domain.AllScopes()
	if raw := store.GetStringSlice(KeyScopes); len(raw) > 0 {
		scopes = scopes[:0:0]
		for _, s := range raw {
			if scope := domain.Scope(s); scope.IsKnown() {
				scopes = append(scopes, scope)
			}
		}
	}

	cfg := domain.SessionConfig{
		Host:         host,
		ClientID:     values[KeyClientID],
		ClientSecret: values[KeyClientSecret],
		RedirectURI:  values[KeyRedirectURI],
		Scopes:       scopes,
	}
	if err := cfg.Validate(); err != nil {
		return domain.SessionConfig{}, err
	}
	return cfg, nil
}
