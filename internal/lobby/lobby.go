// internal/lobby/lobby.go
package lobby

import (
	"sync"

	"github.com/jason-s-yu/cardmage/internal/protocol"
	"github.com/jason-s-yu/cardmage/internal/session"
)

// Lobby is a pre-match room with a fixed number of seats.
type Lobby struct {
	id int32

	// OnEmpty is called once, outside the lock, when the last occupant leaves.
	// The store uses it to drop the lobby from the live set.
	OnEmpty func(l *Lobby)

	// Mu guards every field below. Methods ending in Unsafe expect it held.
	Mu     sync.Mutex
	seats  []*session.Player
	ready  []bool
	closed bool
}

func newLobby(id int32, capacity int) *Lobby {
	return &Lobby{
		id:    id,
		seats: make([]*session.Player, capacity),
		ready: make([]bool, capacity),
	}
}

func (l *Lobby) ID() int32 {
	return l.id
}

// Capacity is the number of seats.
func (l *Lobby) Capacity() int {
	return len(l.seats)
}

// Occupants returns the number of filled seats.
func (l *Lobby) Occupants() int {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	return l.occupantsUnsafe()
}

func (l *Lobby) occupantsUnsafe() int {
	n := 0
	for _, p := range l.seats {
		if p != nil {
			n++
		}
	}
	return n
}

func (l *Lobby) seatOfUnsafe(p *session.Player) int {
	for i, s := range l.seats {
		if s == p {
			return i
		}
	}
	return -1
}

func (l *Lobby) firstFreeUnsafe() int {
	for i, s := range l.seats {
		if s == nil {
			return i
		}
	}
	return -1
}

func (l *Lobby) allReadyUnsafe() bool {
	for i, p := range l.seats {
		if p != nil && !l.ready[i] {
			return false
		}
	}
	return true
}

// hostUnsafe returns the occupant of the lowest filled seat.
func (l *Lobby) hostUnsafe() *session.Player {
	for _, p := range l.seats {
		if p != nil {
			return p
		}
	}
	return nil
}

func (l *Lobby) snapshotUnsafe() []protocol.SeatState {
	out := make([]protocol.SeatState, len(l.seats))
	for i, p := range l.seats {
		if p == nil {
			continue
		}
		id := p.Identity()
		out[i] = protocol.SeatState{Occupant: &id, Ready: l.ready[i]}
	}
	return out
}

func (l *Lobby) entryUnsafe() protocol.LobbyEntry {
	e := protocol.LobbyEntry{
		ID:       l.id,
		MaxSeats: int32(len(l.seats)),
		Seated:   int32(l.occupantsUnsafe()),
	}
	if host := l.hostUnsafe(); host != nil {
		e.Host = host.Identity()
	}
	return e
}

// broadcastUnsafe sends payload to every occupant.
func (l *Lobby) broadcastUnsafe(payload []byte) {
	for _, p := range l.seats {
		if p != nil {
			p.Send(payload)
		}
	}
}
