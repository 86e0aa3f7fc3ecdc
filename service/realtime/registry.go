package realtime

import (
	"sync"
)

// ConnRegistry is the set of currently live connections, keyed by connection
// id. The presence directory answers "which ids", this answers "which actual
// connections" — a lookup can miss when a disconnect raced in between.
type ConnRegistry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{conns: make(map[string]*Conn)}
}

func (r *ConnRegistry) Add(c *Conn) {
	r.mu.Lock()
	r.conns[c.ID] = c
	r.mu.Unlock()
}

func (r *ConnRegistry) Remove(id string) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

func (r *ConnRegistry) Get(id string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

func (r *ConnRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
