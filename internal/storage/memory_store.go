package storage

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/coocood/freecache"
)

// keySep cannot appear in a URL path, so page and key split back unambiguously.
const keySep = "\x00"

// freecache rejects entries above 1/1024 of the cache, header included.
const entryHeaderSize = 24

// MemoryStore keeps values in a bounded freecache. Entries never expire, but the
// cache may evict under memory pressure; an evicted key reads as ErrNotFound.
//
// Pinned keys are kept outside the cache in a map with its own budget of the
// same size. Once that budget is spent, writes that would grow it fail with
// ErrStoreFull and nothing already stored is dropped.
type MemoryStore struct {
	mu     sync.RWMutex
	cache  *freecache.Cache
	size   int
	pinned map[string]struct{}
	kept   map[string]string
	// keptBytes is charged the same per-entry header freecache uses.
	keptBytes int
}

func NewMemoryStore(sizeMB int, pinned ...string) *MemoryStore {
	size := sizeMB * 1024 * 1024
	m := &MemoryStore{
		cache:  freecache.NewCache(size),
		size:   size,
		pinned: make(map[string]struct{}, len(pinned)),
		kept:   make(map[string]string),
	}
	for _, k := range pinned {
		m.pinned[k] = struct{}{}
	}
	return m
}

func (m *MemoryStore) isPinned(key string) bool {
	_, ok := m.pinned[key]
	return ok
}

func keptCost(k, v string) int {
	return len(k) + len(v) + entryHeaderSize
}

func compositeKey(page, key string) []byte {
	return []byte(page + keySep + key)
}

func (m *MemoryStore) Get(page, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.isPinned(key) {
		val, ok := m.kept[string(compositeKey(page, key))]
		if !ok {
			return "", ErrNotFound
		}
		return val, nil
	}

	val, err := m.cache.Get(compositeKey(page, key))
	if errors.Is(err, freecache.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(val), nil
}

func (m *MemoryStore) Set(page, key, value string) error {
	return m.Apply(page, Put(key, value))
}

func (m *MemoryStore) Remove(page, key string) error {
	return m.Apply(page, Del(key))
}

// Apply checks every value fits before touching the cache, so a rejected batch
// leaves nothing behind.
func (m *MemoryStore) Apply(page string, muts ...Mutation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	keptBytes := m.keptBytes
	staged := make(map[string]*string)
	for _, mut := range muts {
		k := compositeKey(page, mut.Key)
		if !m.isPinned(mut.Key) {
			if !mut.Delete && len(k)+len(mut.Value)+entryHeaderSize > m.size/1024 {
				return fmt.Errorf("value for %q too large: %w", mut.Key, freecache.ErrLargeEntry)
			}
			continue
		}

		ks := string(k)
		old, had := m.kept[ks]
		if prev, ok := staged[ks]; ok {
			had = prev != nil
			if had {
				old = *prev
			}
		}
		if had {
			keptBytes -= keptCost(ks, old)
		}
		if mut.Delete {
			staged[ks] = nil
			continue
		}
		v := mut.Value
		staged[ks] = &v
		keptBytes += keptCost(ks, v)
	}
	if keptBytes > m.size && keptBytes > m.keptBytes {
		return fmt.Errorf("writing page %q: %w", page, ErrStoreFull)
	}

	for ks, v := range staged {
		if v == nil {
			delete(m.kept, ks)
			continue
		}
		m.kept[ks] = *v
	}
	m.keptBytes = keptBytes

	for _, mut := range muts {
		if m.isPinned(mut.Key) {
			continue
		}
		k := compositeKey(page, mut.Key)
		if mut.Delete {
			m.cache.Del(k)
			continue
		}
		if err := m.cache.Set(k, []byte(mut.Value), 0); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Len() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cache.EntryCount() + int64(len(m.kept))
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := &Snapshot{Version: SnapshotVersion, Pages: make(map[string]map[string]string)}
	it := m.cache.NewIterator()
	for entry := it.Next(); entry != nil; entry = it.Next() {
		page, key, ok := strings.Cut(string(entry.Key), keySep)
		if !ok {
			continue
		}
		if snap.Pages[page] == nil {
			snap.Pages[page] = make(map[string]string)
		}
		snap.Pages[page][key] = string(entry.Value)
	}
	for ck, v := range m.kept {
		page, key, _ := strings.Cut(ck, keySep)
		if snap.Pages[page] == nil {
			snap.Pages[page] = make(map[string]string)
		}
		snap.Pages[page][key] = v
	}
	return snap
}

func (m *MemoryStore) Restore(s *Snapshot) error {
	if s == nil {
		return nil
	}
	if s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	for page, values := range s.Pages {
		muts := make([]Mutation, 0, len(values))
		for k, v := range values {
			muts = append(muts, Put(k, v))
		}
		if err := m.Apply(page, muts...); err != nil {
			return fmt.Errorf("restoring page %q: %w", page, err)
		}
	}
	return nil
}
