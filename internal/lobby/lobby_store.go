// internal/lobby/lobby_store.go
package lobby

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jason-s-yu/cardmage/internal/protocol"
	"github.com/jason-s-yu/cardmage/internal/session"
	"github.com/sirupsen/logrus"
)

// DefaultCapacity is the number of seats in a lobby and therefore in a match.
const DefaultCapacity = 2

var (
	ErrNotFound = errors.New("lobby not found")
	ErrFull     = errors.New("lobby full")
	ErrNoLobby  = errors.New("player is not in a lobby")
	ErrNotReady = errors.New("not every seated player is ready")
)

// StartFunc turns the seated players of a closed lobby into a match. It is
// expected to move each player into the match with session.Player.EnterMatch.
type StartFunc func(l *Lobby, players []*session.Player) error

// Store holds the live lobbies and runs the lobby state machine.
type Store struct {
	mu      sync.Mutex
	lobbies map[int32]*Lobby
	nextID  int32

	capacity     int
	requireReady bool
	start        StartFunc
	logger       logrus.FieldLogger
}

// Option tweaks a Store.
type Option func(*Store)

// WithCapacity sets the number of seats per lobby.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithRequireReady makes Start refuse until every seated player is ready.
func WithRequireReady(v bool) Option {
	return func(s *Store) { s.requireReady = v }
}

// NewStore returns an empty store that hands started lobbies to start.
func NewStore(start StartFunc, logger logrus.FieldLogger, opts ...Option) *Store {
	s := &Store{
		lobbies:  make(map[int32]*Lobby),
		capacity: DefaultCapacity,
		start:    start,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a live lobby by id.
func (s *Store) Get(id int32) (*Lobby, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[id]
	return l, ok
}

// Len returns the number of live lobbies.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lobbies)
}

func (s *Store) remove(l *Lobby) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.lobbies[l.id]; ok && cur == l {
		delete(s.lobbies, l.id)
	}
}

func (s *Store) snapshot() []*Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Lobby, 0, len(s.lobbies))
	for _, l := range s.lobbies {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func lobbyOf(p *session.Player) (*Lobby, error) {
	l, ok := p.Lobby().(*Lobby)
	if !ok || l == nil {
		return nil, ErrNoLobby
	}
	return l, nil
}

func (s *Store) log(l *Lobby, p *session.Player) *logrus.Entry {
	fields := logrus.Fields{"lobby": l.id}
	if p != nil {
		fields["session"] = p.SessionID
		fields["player"] = p.Identity().Name
	}
	return s.logger.WithFields(fields)
}

// Create opens a new lobby with p as host in seat 0 and sends p the lobby snapshot.
func (s *Store) Create(p *session.Player) (*Lobby, error) {
	if p.Context() != session.Unattached {
		return nil, session.ErrAlreadyAttached
	}

	s.mu.Lock()
	l := newLobby(s.nextID, s.capacity)
	s.nextID++
	s.mu.Unlock()

	if err := p.EnterLobby(l); err != nil {
		return nil, err
	}
	l.OnEmpty = s.remove

	l.Mu.Lock()
	l.seats[0] = p
	p.Send(protocol.LobbyJoin(l.id, l.snapshotUnsafe()))
	l.Mu.Unlock()

	s.mu.Lock()
	s.lobbies[l.id] = l
	s.mu.Unlock()

	s.log(l, p).Info("lobby created")
	return l, nil
}

// Join seats p in the first free seat of lobby id. Rejections that the
// client must see (unknown id, full lobby) are sent to p before returning.
func (s *Store) Join(p *session.Player, id int32) error {
	if p.Context() != session.Unattached {
		return session.ErrAlreadyAttached
	}
	l, ok := s.Get(id)
	if !ok {
		p.Send(protocol.LobbyNotFound())
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	l.Mu.Lock()
	defer l.Mu.Unlock()
	if l.closed {
		p.Send(protocol.LobbyNotFound())
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	seat := l.firstFreeUnsafe()
	if seat < 0 {
		p.Send(protocol.LobbyFull())
		return fmt.Errorf("%w: %d", ErrFull, id)
	}
	if err := p.EnterLobby(l); err != nil {
		return err
	}

	// existing occupants first, then seat the newcomer
	l.broadcastUnsafe(protocol.LobbyOtherJoin(seat, p.Identity()))
	l.seats[seat] = p
	l.ready[seat] = false
	p.Send(protocol.LobbyJoin(l.id, l.snapshotUnsafe()))

	s.log(l, p).WithField("seat", seat).Info("player joined lobby")
	return nil
}

// SetReady updates p's ready flag and tells every occupant.
func (s *Store) SetReady(p *session.Player, ready bool) error {
	l, err := lobbyOf(p)
	if err != nil {
		return err
	}
	l.Mu.Lock()
	defer l.Mu.Unlock()
	seat := l.seatOfUnsafe(p)
	if seat < 0 || l.closed {
		return nil
	}
	l.ready[seat] = ready
	l.broadcastUnsafe(protocol.PlayerReady(seat, ready))
	return nil
}

// Leave vacates p's seat. The vacancy goes out to every occupant, the leaver
// included. A lobby left empty is removed from the live set.
func (s *Store) Leave(p *session.Player) error {
	l, err := lobbyOf(p)
	if err != nil {
		return err
	}

	l.Mu.Lock()
	seat := l.seatOfUnsafe(p)
	if seat < 0 || l.closed {
		l.Mu.Unlock()
		p.ExitLobby(l)
		return nil
	}
	l.broadcastUnsafe(protocol.LobbyLeave(seat))
	l.seats[seat] = nil
	l.ready[seat] = false
	p.ExitLobby(l)
	empty := l.occupantsUnsafe() == 0
	if empty {
		l.closed = true
	}
	onEmpty := l.OnEmpty
	l.Mu.Unlock()

	s.log(l, p).WithField("seat", seat).Info("player left lobby")
	if empty && onEmpty != nil {
		onEmpty(l)
		s.log(l, nil).Info("lobby emptied and removed")
	}
	return nil
}

// Start closes p's lobby and hands its seated players to the match factory.
// Seat order is preserved, empty seats are skipped.
func (s *Store) Start(p *session.Player) error {
	l, err := lobbyOf(p)
	if err != nil {
		return err
	}

	l.Mu.Lock()
	if l.closed || l.seatOfUnsafe(p) < 0 {
		l.Mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNotFound, l.id)
	}
	if s.requireReady && !l.allReadyUnsafe() {
		l.Mu.Unlock()
		return ErrNotReady
	}
	players := make([]*session.Player, 0, len(l.seats))
	for _, occupant := range l.seats {
		if occupant != nil {
			players = append(players, occupant)
		}
	}
	l.closed = true
	l.Mu.Unlock()

	s.remove(l)
	s.log(l, p).WithField("players", len(players)).Info("lobby started")

	if s.start == nil {
		for _, pl := range players {
			pl.ExitLobby(l)
		}
		return errors.New("no match factory configured")
	}
	if err := s.start(l, players); err != nil {
		for _, pl := range players {
			pl.ExitLobby(l)
		}
		return fmt.Errorf("failed to start match for lobby %d: %w", l.id, err)
	}
	return nil
}

// List returns one entry per open lobby, ordered by id. Each lobby is read
// under its own lock.
func (s *Store) List() []protocol.LobbyEntry {
	var entries []protocol.LobbyEntry
	for _, l := range s.snapshot() {
		l.Mu.Lock()
		if !l.closed {
			entries = append(entries, l.entryUnsafe())
		}
		l.Mu.Unlock()
	}
	return entries
}

// SendList answers a list request.
func (s *Store) SendList(p *session.Player) {
	p.Send(protocol.LobbyList(s.List()))
}
