package domain

import (
	"fmt"
	"net/url"
)

// SessionConfig holds host and OAuth application settings.
// It is loaded once at startup and never mutated.
type SessionConfig struct {
	// Host is the API host, e.g. https://bikeindex.org/.
	Host *url.URL
	// ClientID identifies the OAuth application.
	ClientID string
	// ClientSecret is sent on the authorization-code exchange only.
	ClientSecret string
	// RedirectURI is where the authorisation server sends the code.
	RedirectURI string
	// Scopes requested during authorisation, in order.
	Scopes []Scope
}

// Validate checks the configuration is usable.
func (c SessionConfig) Validate() error {
	if c.Host == nil || !c.Host.IsAbs() {
		return fmt.Errorf("%w: host must be an absolute URL", ErrInvalidInput)
	}
	if c.Host.Scheme != "http" && c.Host.Scheme != "https" {
		return fmt.Errorf("%w: host scheme must be http or https", ErrInvalidInput)
	}
	if c.ClientID == "" {
		return fmt.Errorf("%w: client id is required", ErrInvalidInput)
	}
	if _, err := url.Parse(c.RedirectURI); err != nil || c.RedirectURI == "" {
		return fmt.Errorf("%w: redirect uri is invalid", ErrInvalidInput)
	}
	return nil
}

// RedirectURL parses RedirectURI.
func (c SessionConfig) RedirectURL() (*url.URL, error) {
	return url.Parse(c.RedirectURI)
}
