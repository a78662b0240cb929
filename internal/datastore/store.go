// Package datastore deduplicates route data. Values that occur in more than
// one route are serialized once into content-addressed artifacts and routes
// refer to them by hash.
package datastore

import (
	"fmt"
	"sort"
	"sync"

	"github.com/3-lines-studio/prerender/internal/core"
)

type entry struct {
	value any
	count int
	hash  string
}

// Store tracks how often each value is seen and which ones have been
// materialized into artifacts. It is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	entries   map[any]*entry
	order     []any
	artifacts map[string]core.Artifact
}

func New() *Store {
	return &Store{
		entries:   make(map[any]*entry),
		artifacts: make(map[string]core.Artifact),
	}
}

// Record counts one sighting of v and reports whether v has now been seen
// more than once. Ineligible values are ignored.
func (s *Store) Record(v any) bool {
	key, ok := identity(v)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{value: v}
		s.entries[key] = e
		s.order = append(s.order, key)
	}
	e.count++
	return e.count > 1
}

// Shared returns the values recorded at least twice, in first-seen order.
func (s *Store) Shared() []any {
	s.mu.Lock()
	defer s.mu.Unlock()

	var shared []any
	for _, key := range s.order {
		if e := s.entries[key]; e.count > 1 {
			shared = append(shared, e.value)
		}
	}
	return shared
}

// Materialize serializes v, registers it as an artifact and returns its hash.
// Repeated calls for the same value return the same hash without serializing
// again. On failure nothing is registered.
func (s *Store) Materialize(v any) (string, error) {
	key, ok := identity(v)
	if !ok {
		return "", fmt.Errorf("%w: value of type %T cannot be shared", core.ErrSerialize, v)
	}

	s.mu.Lock()
	if e, ok := s.entries[key]; ok && e.hash != "" {
		s.mu.Unlock()
		return e.hash, nil
	}
	s.mu.Unlock()

	data, err := core.MarshalJSON(v)
	if err != nil {
		return "", fmt.Errorf("%w: shared value of type %T: %w", core.ErrSerialize, v, err)
	}
	hash := core.ShortHash(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{value: v}
		s.entries[key] = e
		s.order = append(s.order, key)
	}
	if e.hash == "" {
		e.hash = hash
	}
	if _, ok := s.artifacts[e.hash]; !ok {
		s.artifacts[e.hash] = core.Artifact{Hash: e.hash, JSON: data}
	}
	return e.hash, nil
}

// MaterializeShared materializes every value recorded more than once.
func (s *Store) MaterializeShared() error {
	for _, v := range s.Shared() {
		if _, err := s.Materialize(v); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the artifact hash of a materialized value.
func (s *Store) Lookup(v any) (string, bool) {
	key, ok := identity(v)
	if !ok {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.hash == "" {
		return "", false
	}
	return e.hash, true
}

// Artifacts returns every registered artifact ordered by hash.
func (s *Store) Artifacts() []core.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()

	artifacts := make([]core.Artifact, 0, len(s.artifacts))
	for _, a := range s.artifacts {
		artifacts = append(artifacts, a)
	}
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Hash < artifacts[j].Hash
	})
	return artifacts
}
