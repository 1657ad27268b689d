package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

var (
	registry   = make(map[SchemaKey]Schema)
	registryMu sync.RWMutex
)

// Register adds a schema to the registry.
// Panics if the key is unknown, already registered, or a field name repeats.
func Register(s Schema) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if !isKnownKey(s.Key) {
		panic(fmt.Sprintf("unknown schema key: %s", s.Key))
	}
	if _, exists := registry[s.Key]; exists {
		panic(fmt.Sprintf("schema already registered: %s", s.Key))
	}

	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if seen[f.Name] {
			panic(fmt.Sprintf("schema %s: duplicate field %s", s.Key, f.Name))
		}
		seen[f.Name] = true
	}

	if s.Table == "" {
		s.Table = string(s.Key)
	}

	registry[s.Key] = s
}

// SchemaFor returns the schema registered under key.
func SchemaFor(key SchemaKey) (Schema, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	s, ok := registry[key]
	if !ok {
		return Schema{}, errors.Wrapf(ErrSchemaNotFound, "%q", key)
	}
	return s, nil
}

// ParseSchemaKey resolves an untrusted string to a registered schema key.
func ParseSchemaKey(raw string) (SchemaKey, error) {
	key := SchemaKey(strings.ToLower(strings.TrimSpace(raw)))
	if !isKnownKey(key) {
		return "", errors.Wrapf(ErrSchemaNotFound, "%q", raw)
	}
	if _, err := SchemaFor(key); err != nil {
		return "", err
	}
	return key, nil
}

// All returns all registered schemas sorted by key.
func All() []Schema {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Schema, 0, len(registry))
	for _, s := range registry {
		result = append(result, s)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result
}

// SchemaCount returns the number of registered schemas.
func SchemaCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered schemas.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[SchemaKey]Schema)
}

func isKnownKey(key SchemaKey) bool {
	for _, k := range knownSchemaKeys {
		if k == key {
			return true
		}
	}
	return false
}

// TemplateCSV returns a header-only CSV file for the schema.
func (s Schema) TemplateCSV() string {
	return strings.Join(s.FieldNames(), ",") + "\n"
}
