package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"geneagrapher/internal/record"
)

// LRUCache is a bounded in-memory implementation of record.Cache,
// backed by github.com/hashicorp/golang-lru/v2. Once full, the least
// recently used entry (record or null hit alike) is evicted — unlike
// MemoryCache, an evicted id is simply forgotten and will be
// re-fetched, not re-served as a miss-turned-hit.
type LRUCache struct {
	cache *lru.Cache[record.ID, entry]
}

// NewLRUCache creates an LRUCache holding at most size entries.
func NewLRUCache(size int) (*LRUCache, error) {
	c, err := lru.New[record.ID, entry](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{cache: c}, nil
}

func (c *LRUCache) Get(id record.ID) (hit bool, rec *record.Record, err error) {
	e, ok := c.cache.Get(id)
	if !ok {
		return false, nil, nil
	}
	return true, copyRecord(e.rec), nil
}

func (c *LRUCache) Set(id record.ID, rec *record.Record) error {
	c.cache.Add(id, entry{rec: copyRecord(rec)})
	return nil
}
