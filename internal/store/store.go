// Package store provides the versioned in-memory configuration store for bucketry.
//
// The store maps a configuration key to every version of that configuration the
// process has ever seen, plus a pointer to the latest known version. Entries
// only grow: versions are never evicted for the lifetime of the process, and
// stored documents are immutable once written. The whole store is discarded on
// process exit; a fresh process starts cold and is rebuilt from the remote
// source.
//
// All methods are safe for concurrent use.
package store

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Store holds versioned documents of type T keyed by configuration key.
type Store[T any] struct {
	entries map[string]*entry[T]
	name    string
	log     zerolog.Logger
	mu      sync.RWMutex
}

// entry tracks every known version of one configuration key.
// latestKnown always has a corresponding version in versions.
type entry[T any] struct {
	versions    map[int]T
	latestKnown int
}

// New creates an empty store. The name tags log lines so the config store and
// the prompt store are distinguishable in output.
func New[T any](name string, log zerolog.Logger) *Store[T] {
	return &Store[T]{
		entries: make(map[string]*entry[T]),
		name:    name,
		log:     log.With().Str("store", name).Logger(),
	}
}

// Latest returns the latest known version of the document for key.
// Returns ErrConfigNotFound if the key has never been stored.
func (s *Store[T]) Latest(key string) (T, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero T
	e, ok := s.entries[key]
	if !ok {
		return zero, 0, ErrConfigNotFound
	}
	return e.versions[e.latestKnown], e.latestKnown, nil
}

// Version returns a specific version of the document for key.
// Returns ErrConfigNotFound if the key is unknown, ErrVersionNotFound if the
// key is known but the requested version is not.
func (s *Store[T]) Version(key string, version int) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero T
	e, ok := s.entries[key]
	if !ok {
		return zero, ErrConfigNotFound
	}
	doc, ok := e.versions[version]
	if !ok {
		return zero, ErrVersionNotFound
	}
	return doc, nil
}

// Has reports whether any version of key is stored.
func (s *Store[T]) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.entries[key]
	return ok
}

// Upsert merges a document into the entry for key and promotes it to the
// latest known version unconditionally. The remote source is authoritative
// about its latest version, so last-write-wins per key is correct even under
// concurrent sync and on-demand fetches.
func (s *Store[T]) Upsert(key string, version int, doc T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensureEntry(key)
	e.versions[version] = doc
	e.latestKnown = version

	s.log.Debug().
		Str("key", key).
		Int("version", version).
		Msg("store upsert")
}

// Merge stores a document without promoting it to latest. Used when
// backfilling an explicitly pinned version so that a pin on an old version
// does not move the latest pointer backwards. If the key was previously
// unknown, the merged version becomes the latest by necessity.
func (s *Store[T]) Merge(key string, version int, doc T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, existed := s.entries[key]
	if !existed {
		e = s.ensureEntry(key)
		e.latestKnown = version
	}
	e.versions[version] = doc

	s.log.Debug().
		Str("key", key).
		Int("version", version).
		Bool("promoted", !existed).
		Msg("store merge")
}

// Keys returns all known configuration keys in unspecified order.
func (s *Store[T]) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Keys(s.entries)
}

// Len returns the number of known configuration keys.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// VersionCount returns how many versions of key are stored.
func (s *Store[T]) VersionCount(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return 0
	}
	return len(e.versions)
}

// ensureEntry returns the entry for key, creating it if needed.
// Callers must hold the write lock.
func (s *Store[T]) ensureEntry(key string) *entry[T] {
	e, ok := s.entries[key]
	if !ok {
		e = &entry[T]{versions: make(map[int]T)}
		s.entries[key] = e
	}
	return e
}
