package driven

// SecureStore is an opaque key-value store for secrets.
// Values are bytes the caller serialises; the store never inspects them.
type SecureStore interface {
	// Get returns the value for key, or domain.ErrNotFound.
	Get(key string) ([]byte, error)

	// Set stores value under key, replacing any existing value.
	Set(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}
