package plugkit

import (
	"sort"
	"sync"
)

// Index is a secondary key→value mapping fed by registration. Entries are
// written only by the registries an Index is attached to (via
// SecondaryDef); callers read them. An Index may be shared by several
// registries.
type Index struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewIndex creates a new empty index.
func NewIndex() *Index {
	return &Index{
		entries: make(map[string]string),
	}
}

// Get returns the value stored under key and whether it was found.
func (ix *Index) Get(key string) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	v, ok := ix.entries[key]
	return v, ok
}

// Contains reports whether key is present.
func (ix *Index) Contains(key string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.entries[key]
	return ok
}

// Keys returns all keys in sorted order.
func (ix *Index) Keys() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	keys := make([]string, 0, len(ix.entries))
	for k := range ix.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// set inserts or replaces an entry. Registration is the only writer.
func (ix *Index) set(key, value string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries[key] = value
}
