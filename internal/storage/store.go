// Package storage holds the per-page key-value store that visitor state lives in.
// Every key is addressed by a page namespace (device + page path) so albums on
// different paths, or different devices, never see each other's values.
package storage

import "errors"

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("key not found")

// ErrStoreFull is returned when a write to keys that may not be evicted would
// exceed the store's budget.
var ErrStoreFull = errors.New("store full")

// PinnedKeys names keys a bounded driver must keep until they are removed.
// Drivers without eviction ignore it.
type PinnedKeys []string

// Mutation is one write inside an atomic Apply.
type Mutation struct {
	Key    string
	Value  string
	Delete bool
}

func Put(key, value string) Mutation {
	return Mutation{Key: key, Value: value}
}

func Del(key string) Mutation {
	return Mutation{Key: key, Delete: true}
}

type Store interface {
	Get(page, key string) (string, error)
	Set(page, key, value string) error
	Remove(page, key string) error
	// Apply writes all mutations for page or none of them.
	Apply(page string, muts ...Mutation) error
	Close() error
}

// Snapshot is the on-disk shape of a memory store: page -> key -> value.
type Snapshot struct {
	Version int                          `json:"version"`
	Pages   map[string]map[string]string `json:"pages"`
}

const SnapshotVersion = 1

type Snapshotter interface {
	Snapshot() *Snapshot
	Restore(s *Snapshot) error
}

type unwrapper interface {
	Unwrap() Store
}

// AsSnapshotter finds a Snapshotter under any number of store wrappers.
func AsSnapshotter(store Store) (Snapshotter, bool) {
	for store != nil {
		if s, ok := store.(Snapshotter); ok {
			return s, true
		}
		u, ok := store.(unwrapper)
		if !ok {
			return nil, false
		}
		store = u.Unwrap()
	}
	return nil, false
}
