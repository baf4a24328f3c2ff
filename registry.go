package store

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Registry maps keys to store instances. Each key is constructed successfully
// at most once for the lifetime of the registry and instances are never removed.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	once  sync.Once
	ready atomic.Bool
	value any
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry used when none is configured.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// GetOrCreate returns the instance cached under key, calling factory to build
// it when the key is new. Concurrent callers for the same key block until the
// single factory call returns. A factory that panics leaves the key unset, so
// a later call builds it again. A factory must not call GetOrCreate for its
// own key.
func (r *Registry) GetOrCreate(key string, factory func() any) any {
	for {
		entry := r.entry(key)
		entry.once.Do(func() {
			defer func() {
				if !entry.ready.Load() {
					r.forget(key, entry)
				}
			}()
			entry.value = factory()
			entry.ready.Store(true)
		})
		if entry.ready.Load() {
			return entry.value
		}
	}
}

func (r *Registry) entry(key string) *registryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = make(map[string]*registryEntry)
	}
	entry, ok := r.entries[key]
	if !ok {
		entry = &registryEntry{}
		r.entries[key] = entry
	}
	return entry
}

func (r *Registry) forget(key string, entry *registryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[key] == entry {
		delete(r.entries, key)
	}
}

// Lookup returns the instance cached under key, if construction finished.
func (r *Registry) Lookup(key string) (any, bool) {
	r.mu.Lock()
	entry, ok := r.entries[key]
	r.mu.Unlock()
	if !ok || !entry.ready.Load() {
		return nil, false
	}
	return entry.value, true
}

// Keys returns the keys of constructed instances sorted alphabetically.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.entries))
	for key, entry := range r.entries {
		if entry.ready.Load() {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
