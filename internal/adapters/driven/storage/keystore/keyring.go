package keystore

import (
	"encoding/base64"
	"errors"
	"fmt"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
	"github.com/custodia-labs/bikeindex-cli/internal/core/ports/driven"
	"github.com/custodia-labs/bikeindex-cli/internal/logger"
)

// DefaultService is the keychain service entries are filed under.
const DefaultService = "bikeindex-cli"

// checkKey is written and removed to test that the keychain works.
const checkKey = "keychain-check"

// Ensure Keyring implements the interface.
var _ driven.SecureStore = (*Keyring)(nil)

// Keyring keeps secrets in the OS keychain, one entry per key under a
// single service. Values are base64 encoded because some backends only
// hold text.
type Keyring struct {
	service string
}

// NewKeyring creates a keychain store for service.
// If service is empty, defaults to DefaultService.
func NewKeyring(service string) *Keyring {
	if service == "" {
		service = DefaultService
	}
	return &Keyring{service: service}
}

// Get returns the value stored under key.
func (k *Keyring) Get(key string) ([]byte, error) {
	encoded, err := gokeyring.Get(k.service, key)
	if errors.Is(err, gokeyring.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading key %q from keychain: %w", key, err)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding key %q: %w", key, err)
	}
	return data, nil
}

// Set stores value under key.
func (k *Keyring) Set(key string, value []byte) error {
	if err := gokeyring.Set(k.service, key, base64.StdEncoding.EncodeToString(value)); err != nil {
		return fmt.Errorf("storing key %q in keychain: %w", key, err)
	}
	return nil
}

// Delete removes key. A missing key is not an error.
func (k *Keyring) Delete(key string) error {
	err := gokeyring.Delete(k.service, key)
	if err != nil && !errors.Is(err, gokeyring.ErrNotFound) {
		return fmt.Errorf("deleting key %q from keychain: %w", key, err)
	}
	return nil
}

// Available reports whether the keychain accepts a write and returns it.
func (k *Keyring) Available() bool {
	if err := gokeyring.Set(k.service, checkKey, "ok"); err != nil {
		return false
	}
	got, err := gokeyring.Get(k.service, checkKey)
	_ = gokeyring.Delete(k.service, checkKey)
	return err == nil && got == "ok"
}

// Open returns the OS keychain for service when it works, and otherwise
// the file store rooted at dir.
func Open(service, dir string) (driven.SecureStore, error) {
	log := logger.With("keystore")

	kr := NewKeyring(service)
	if kr.Available() {
		log.Debug().Str("service", kr.service).Msg("using OS keychain")
		return kr, nil
	}

	store, err := New(dir)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("dir", store.Dir()).Msg("no OS keychain; using file keystore")
	return store, nil
}
