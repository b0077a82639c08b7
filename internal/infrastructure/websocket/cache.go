package websocket

import (
	"crypto/sha256"
	"sync"
)

// SnapshotCache remembers the last payload pushed per subscription so a
// store wake-up that changed nothing visible is not pushed again. Each
// session owns one; entries are evicted on unsubscribe and dropped on
// close.
type SnapshotCache struct {
	mu   sync.Mutex
	last map[string][sha256.Size]byte
}

func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{
		last: make(map[string][sha256.Size]byte),
	}
}

// Changed records payload under key and reports whether it differs from
// the previous payload for key.
func (c *SnapshotCache) Changed(key string, payload []byte) bool {
	sum := sha256.Sum256(payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.last[key]; ok && prev == sum {
		return false
	}
	c.last[key] = sum
	return true
}

func (c *SnapshotCache) Evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.last, key)
}

func (c *SnapshotCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = make(map[string][sha256.Size]byte)
}

func (c *SnapshotCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.last)
}
