package cache

import (
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemCache is a bounded in-memory provider that evicts the least recently
// used entry when full.
type MemCache struct {
	entries *lru.Cache[string, Entry]
}

func NewMemCache(size int) (*MemCache, error) {
	entries, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, err
	}
	return &MemCache{entries: entries}, nil
}

func (m *MemCache) Get(key string) (Entry, bool, error) {
	e, ok := m.entries.Get(key)
	return e, ok, nil
}

func (m *MemCache) Put(e Entry) error {
	e.Bytes = append([]byte(nil), e.Bytes...)
	m.entries.Add(e.Key, e)
	return nil
}

func (m *MemCache) Purge(key string) error {
	m.entries.Remove(key)
	return nil
}

func (m *MemCache) Keys(prefix string, cb func(string)) error {
	keys := m.entries.Keys()
	sort.Strings(keys)
	for _, key := range keys {
		if strings.HasPrefix(key, prefix) {
			cb(key)
		}
	}
	return nil
}

func (m *MemCache) Close() error {
	m.entries.Purge()
	return nil
}
