// Package memory holds in-memory driven adapters.
package memory

import (
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps profile configuration in a map. Used by tests.
type ConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewConfigStore returns an empty store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{values: make(map[string]any)}
}

// lookup returns the value under key converted to T, or the zero value.
func lookup[T any](s *ConfigStore, key string) T {
	var zero T
	v, ok := s.Get(key)
	if !ok {
		return zero
	}
	t, ok := v.(T)
	if !ok {
		return zero
	}
	return t
}

func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *ConfigStore) GetString(key string) string { return lookup[string](s, key) }

func (s *ConfigStore) GetBool(key string) bool { return lookup[bool](s, key) }

// GetInt accepts the numeric types a TOML round trip can produce.
func (s *ConfigStore) GetInt(key string) int {
	v, _ := s.Get(key)
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// GetStringSlice drops non-string elements of untyped lists.
func (s *ConfigStore) GetStringSlice(key string) []string {
	v, _ := s.Get(key)
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func (s *ConfigStore) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for _, k := range slices.Sorted(maps.Keys(s.values)) {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}

func (s *ConfigStore) Delete(keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.values, k)
	}
	s.mu.Unlock()
	return nil
}

// Save, Load and Path satisfy the interface; nothing is persisted.
func (s *ConfigStore) Save() error  { return nil }
func (s *ConfigStore) Load() error  { return nil }
func (s *ConfigStore) Path() string { return ":memory:" }
