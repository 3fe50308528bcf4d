package models

import "sync"

// SequentialIDGenerator hands out compact connection numbers. Released
// numbers are handed out again before the sequence grows, so long-lived
// servers with churning connections keep small ids.
type SequentialIDGenerator struct {
	mu       sync.Mutex
	last     uint32
	released map[uint32]struct{}
}

// New returns the next id, preferring a previously released one.
func (g *SequentialIDGenerator) New() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()

	for id := range g.released {
		delete(g.released, id)
		return id
	}

	g.last++
	return g.last
}

// Reuse releases an id so New can hand it out again.
func (g *SequentialIDGenerator) Reuse(id uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.released == nil {
		g.released = make(map[uint32]struct{})
	}
	g.released[id] = struct{}{}
}
