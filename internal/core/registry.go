package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]TableSchema)
	registryMu sync.RWMutex
)

// Register adds a table schema to the registry.
// Panics if a schema with the same name is already registered.
func Register(schema TableSchema) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[schema.Name]; exists {
		panic(fmt.Sprintf("schema already registered: %s", schema.Name))
	}
	if len(schema.Columns) == 0 {
		panic(fmt.Sprintf("schema has no columns: %s", schema.Name))
	}

	registry[schema.Name] = schema
}

// Get returns a schema by name.
// Returns false if not found.
func Get(name string) (TableSchema, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	schema, ok := registry[name]
	return schema, ok
}

// MustGet returns a schema by name or an error naming the known schemas.
func MustGet(name string) (TableSchema, error) {
	schema, ok := Get(name)
	if !ok {
		return TableSchema{}, fmt.Errorf("unknown schema: %s (known: %v)", name, Names())
	}
	return schema, nil
}

// Names returns all registered schema names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
