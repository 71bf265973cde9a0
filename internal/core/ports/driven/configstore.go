package driven

// ConfigStore provides access to the settings file.
// Keys are dot-separated, e.g. "oauth.client_id".
type ConfigStore interface {
	// GetString retrieves a string value.
	// Returns empty string if key doesn't exist or isn't a string.
	GetString(key string) string

	// GetStringSlice retrieves a string slice value.
	// Returns nil if key doesn't exist or isn't a slice.
	GetStringSlice(key string) []string

	// Set stores a value and persists immediately.
	Set(key string, value any) error

	// Path returns the configuration file path.
	Path() string
}
