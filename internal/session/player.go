// internal/session/player.go
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardmage/internal/models"
)

var (
	// ErrAlreadyAttached is returned when a player who is already in a lobby or match tries to enter another.
	ErrAlreadyAttached = errors.New("player already in a lobby or match")
	// ErrNoSuchDeck is returned when selecting a deck index the player does not own.
	ErrNoSuchDeck = errors.New("no such deck")
)

// Context is where a player currently is.
type Context int

const (
	Unattached Context = iota
	InLobby
	InMatch
)

func (c Context) String() string {
	switch c {
	case Unattached:
		return "unattached"
	case InLobby:
		return "lobby"
	case InMatch:
		return "match"
	}
	return fmt.Sprintf("context(%d)", int(c))
}

// LobbyHandle is the view of a lobby a player keeps.
type LobbyHandle interface {
	ID() int32
}

// MatchHandle is the view of a match a player keeps. Both calls only enqueue work.
type MatchHandle interface {
	Submit(p *Player, payload []byte)
	Leave(p *Player)
}

// Player is the server-side state bound to one connection.
type Player struct {
	SessionID uuid.UUID

	mu         sync.Mutex
	identity   models.Identity
	loggedIn   bool
	activeDeck int
	context    Context
	lobby      LobbyHandle
	match      MatchHandle
	seat       int

	out        chan []byte
	closed     bool
	overflowed bool
}

// NewPlayer creates an unattached player whose outbound queue holds up to queueSize payloads.
func NewPlayer(identity models.Identity, queueSize int) *Player {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Player{
		SessionID: uuid.New(),
		identity:  identity,
		out:       make(chan []byte, queueSize),
		seat:      -1,
	}
}

// Send queues a payload for the writer without blocking. A full queue means
// the peer stopped reading: the queue is closed, which ends the connection
// once the writer has drained it. Send returns false when the payload was not
// queued.
func (p *Player) Send(payload []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.out <- payload:
		return true
	default:
		p.overflowed = true
		p.closed = true
		close(p.out)
		return false
	}
}

// TrySend is Send for payloads that may be lost, such as pings. A full queue
// only drops the payload.
func (p *Player) TrySend(payload []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.out <- payload:
		return true
	default:
		return false
	}
}

// Overflowed reports whether the outbound queue was closed because it filled up.
func (p *Player) Overflowed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.overflowed
}

// Outbound is drained by the connection's writer.
func (p *Player) Outbound() <-chan []byte {
	return p.out
}

// CloseOutbound stops further sends and lets the writer finish. Safe to call twice.
func (p *Player) CloseOutbound() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.out)
}

func (p *Player) Identity() models.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.identity
}

func (p *Player) LoggedIn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loggedIn
}

// Login replaces the guest identity. Only allowed while unattached.
func (p *Player) Login(identity models.Identity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.context != Unattached {
		return ErrAlreadyAttached
	}
	p.identity = identity
	p.loggedIn = true
	p.activeDeck = 0
	return nil
}

// ActiveDeck returns the deck the player will bring into the next match.
func (p *Player) ActiveDeck() models.Deck {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.activeDeck < len(p.identity.Decks) {
		return p.identity.Decks[p.activeDeck]
	}
	return models.DefaultDeck()
}

// SelectDeck picks one of the identity's decks. Not allowed mid-match.
func (p *Player) SelectDeck(index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.context == InMatch {
		return ErrAlreadyAttached
	}
	if index < 0 || index >= len(p.identity.Decks) {
		return fmt.Errorf("%w: %d of %d", ErrNoSuchDeck, index, len(p.identity.Decks))
	}
	p.activeDeck = index
	return nil
}

func (p *Player) Context() Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.context
}

func (p *Player) Lobby() LobbyHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lobby
}

// Match returns the bound match and seat, or nil and -1.
func (p *Player) Match() (MatchHandle, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.match, p.seat
}

// EnterLobby binds the player to l if it has no context yet.
func (p *Player) EnterLobby(l LobbyHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.context != Unattached {
		return ErrAlreadyAttached
	}
	p.context = InLobby
	p.lobby = l
	return nil
}

// ExitLobby unbinds the player from l. It does nothing if the player is elsewhere.
func (p *Player) ExitLobby(l LobbyHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.context != InLobby || p.lobby != l {
		return
	}
	p.context = Unattached
	p.lobby = nil
}

// EnterMatch moves the player from lobby from into m at seat.
func (p *Player) EnterMatch(from LobbyHandle, m MatchHandle, seat int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.context != InLobby || p.lobby != from {
		return ErrAlreadyAttached
	}
	p.context = InMatch
	p.lobby = nil
	p.match = m
	p.seat = seat
	return nil
}

// ExitMatch unbinds the player from m. It does nothing if the player is elsewhere.
func (p *Player) ExitMatch(m MatchHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.context != InMatch || p.match != m {
		return
	}
	p.context = Unattached
	p.match = nil
	p.seat = -1
}
