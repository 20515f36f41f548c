package kafka

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultDedupeSize = 8192

// versionGate remembers the newest version applied per object. Objects that
// fall out of the LRU are treated as unseen.
type versionGate struct {
	mu   sync.Mutex
	seen *lru.Cache[string, uint64]
}

func newVersionGate(size int) *versionGate {
	if size <= 0 {
		size = defaultDedupeSize
	}
	c, _ := lru.New[string, uint64](size)
	return &versionGate{seen: c}
}

// newer reports whether v is above the last applied version of key.
func (g *versionGate) newer(key string, v uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	last, ok := g.seen.Get(key)
	return !ok || v > last
}

// record marks v as applied for key. It never moves a key backwards, so
// partitions racing on one object keep the highest version.
func (g *versionGate) record(key string, v uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if last, ok := g.seen.Get(key); ok && v <= last {
		return
	}
	g.seen.Add(key, v)
}
