package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/bikeindex-cli/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// FileName is the settings file inside the config directory.
const FileName = "config.toml"

// ConfigStore reads and writes ~/.bikeindex/config.toml.
//
// The document is kept as decoded TOML tables; a dotted key such as
// "oauth.client_id" addresses client_id in the [oauth] table.
type ConfigStore struct {
	mu   sync.RWMutex
	path string
	tree map[string]any
}

// NewConfigStore opens the settings file in configDir, creating the
// directory if needed. A missing file is an empty configuration.
// If configDir is empty, defaults to ~/.bikeindex.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".bikeindex")
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{path: filepath.Join(configDir, FileName)}
	tree, err := readTree(s.path)
	if err != nil {
		return nil, err
	}
	s.tree = tree
	return s, nil
}

func readTree(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}

	tree := map[string]any{}
	if err := toml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return tree, nil
}

// GetString returns the string at key, or "".
func (s *ConfigStore) GetString(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	str, _ := lookup(s.tree, key).(string)
	return str
}

// GetStringSlice returns the strings at key. Non-string array elements
// are skipped.
func (s *ConfigStore) GetStringSlice(key string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch v := lookup(s.tree, key).(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// Set stores value at key and rewrites the file.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := insert(s.tree, key, value); err != nil {
		return err
	}
	return s.save()
}

// save writes the document through a temporary file so a crash never
// leaves a truncated config. Caller must hold mu.
func (s *ConfigStore) save() error {
	data, err := toml.Marshal(s.tree)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), FileName+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.path
}

// lookup walks the tables named by a dotted key.
func lookup(tree map[string]any, key string) any {
	parts := strings.Split(key, ".")
	node := tree
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			return nil
		}
		node = child
	}
	return node[parts[len(parts)-1]]
}

// insert sets a dotted key, creating tables along the way. A scalar in
// the way of a table is an error rather than being overwritten.
func insert(tree map[string]any, key string, value any) error {
	parts := strings.Split(key, ".")
	node := tree
	for i, part := range parts[:len(parts)-1] {
		existing, present := node[part]
		if !present {
			child := map[string]any{}
			node[part] = child
			node = child
			continue
		}
		child, ok := existing.(map[string]any)
		if !ok {
			return fmt.Errorf("config key %q: %s is not a table", key, strings.Join(parts[:i+1], "."))
		}
		node = child
	}
	node[parts[len(parts)-1]] = value
	return nil
}
