// internal/session/registry.go
package session

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks every connected player.
type Registry struct {
	mu      sync.Mutex
	players map[uuid.UUID]*Player
}

func NewRegistry() *Registry {
	return &Registry{
		players: make(map[uuid.UUID]*Player),
	}
}

func (r *Registry) Add(p *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[p.SessionID] = p
}

// Remove drops the player; removing an unknown player is a no-op.
func (r *Registry) Remove(p *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, p.SessionID)
}

func (r *Registry) Get(id uuid.UUID) (*Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	return p, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Snapshot copies the current players so callers can iterate without holding the lock.
func (r *Registry) Snapshot() []*Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	return out
}
