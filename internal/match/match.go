// internal/match/match.go
package match

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardmage/internal/cards"
	"github.com/jason-s-yu/cardmage/internal/fog"
	"github.com/jason-s-yu/cardmage/internal/grid"
	"github.com/jason-s-yu/cardmage/internal/maze"
	"github.com/jason-s-yu/cardmage/internal/models"
	"github.com/jason-s-yu/cardmage/internal/protocol"
	"github.com/jason-s-yu/cardmage/internal/session"
	"github.com/sirupsen/logrus"
)

// State is the match lifecycle.
type State int

const (
	AwaitingLevelLoad State = iota
	InProgress
	Over
)

func (s State) String() string {
	switch s {
	case AwaitingLevelLoad:
		return "awaiting_level_load"
	case InProgress:
		return "in_progress"
	case Over:
		return "over"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ResultStore receives finished matches. Calls happen off the scheduler goroutine.
type ResultStore interface {
	StoreMatchResult(ctx context.Context, matchID uuid.UUID, result models.MatchResult) error
}

// ActionLog receives every applied command. It is called on the scheduler
// goroutine and must not block.
type ActionLog interface {
	RecordAction(action models.MatchAction)
}

// Settings shape a match's playfield and rules.
type Settings struct {
	Rows        int
	Cols        int
	Hex         bool
	Generator   maze.Kind
	Maze        maze.Options
	VisionRange int
	HandSize    int
	// RejectionFeedback sends ActionRejected to the offending seat instead of
	// rejecting illegal moves silently.
	RejectionFeedback bool
}

// DefaultSettings is a 27x27 hex board with the three-region layout.
func DefaultSettings() Settings {
	return Settings{
		Rows:        27,
		Cols:        27,
		Hex:         true,
		Generator:   maze.ThreeRegion,
		Maze:        maze.Defaults(),
		VisionRange: fog.DefaultRange,
		HandSize:    5,
	}
}

// Deps are the collaborators a match calls into.
type Deps struct {
	Cards   cards.Provider
	Policy  EndStatePolicy
	Actions ActionLog
	Logger  logrus.FieldLogger
	Rand    *rand.Rand
}

type seat struct {
	player   *session.Player
	identity models.Identity
	deck     models.Deck
	board    *Board
	loaded   bool
	present  bool
}

// Match is one game in progress. Producers only touch the command queue;
// everything else belongs to the scheduler goroutine.
type Match struct {
	ID      uuid.UUID
	LobbyID int32

	queue    CommandQueue
	settings Settings
	cards    cards.Provider
	policy   EndStatePolicy
	actions  ActionLog
	logger   logrus.FieldLogger
	rng      *rand.Rand

	seats     []*seat
	grid      *grid.Grid
	fogs      []*fog.FogOfWar
	units     map[int32]*Unit
	nextUnit  int32
	cardByID  map[int32]*Card
	nextCard  int32
	state     State
	turn      int
	result    *models.MatchResult
	setupDone bool
	actionSeq int
	createdAt time.Time
}

// New builds a match for the given players in seat order. Nothing is
// generated until the scheduler first advances it.
func New(lobbyID int32, players []*session.Player, settings Settings, deps Deps) *Match {
	if deps.Cards == nil {
		deps.Cards = cards.Default()
	}
	if deps.Policy == nil {
		deps.Policy = ForfeitOnLeave{}
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	id := uuid.New()
	m := &Match{
		ID:        id,
		LobbyID:   lobbyID,
		settings:  settings,
		cards:     deps.Cards,
		policy:    deps.Policy,
		actions:   deps.Actions,
		logger:    deps.Logger.WithFields(logrus.Fields{"match": id, "lobby": lobbyID}),
		rng:       deps.Rand,
		units:     make(map[int32]*Unit),
		cardByID:  make(map[int32]*Card),
		turn:      -1,
		createdAt: time.Now(),
	}
	for _, p := range players {
		m.seats = append(m.seats, &seat{
			player:   p,
			identity: p.Identity(),
			deck:     p.ActiveDeck(),
			board:    &Board{},
			present:  true,
		})
	}
	return m
}

// Seats returns the number of seats.
func (m *Match) Seats() int {
	return len(m.seats)
}

// Submit queues a game payload from p. Implements session.MatchHandle.
func (m *Match) Submit(p *session.Player, payload []byte) {
	h, seat := p.Match()
	if h != session.MatchHandle(m) {
		m.logger.WithField("session", p.SessionID).Warn("dropping game message from a player not in this match")
		return
	}
	m.queue.Push(Command{Seat: seat, Payload: payload})
}

// Leave queues p's departure and releases p from the match right away.
func (m *Match) Leave(p *session.Player) {
	h, seat := p.Match()
	if h != session.MatchHandle(m) {
		return
	}
	p.ExitMatch(m)
	m.queue.Push(Command{Seat: seat, Leave: true})
}

// LeaveSeat queues the departure of a seat whose player never arrived.
func (m *Match) LeaveSeat(seat int) {
	m.queue.Push(Command{Seat: seat, Leave: true})
}

// State reports the lifecycle state. Only meaningful from the scheduler goroutine.
func (m *Match) State() State {
	return m.state
}

// Result returns the terminal result once the match is over.
func (m *Match) Result() (models.MatchResult, bool) {
	if m.result == nil {
		return models.MatchResult{}, false
	}
	return *m.result, true
}

// Grid exposes the playfield. Only safe from the scheduler goroutine.
func (m *Match) Grid() *grid.Grid {
	return m.grid
}

// Advance runs setup on the first call, then applies every queued command in
// arrival order. It returns true once the match is over.
func (m *Match) Advance() bool {
	if !m.setupDone {
		m.setupDone = true
		if err := m.setup(); err != nil {
			m.logger.WithError(err).Error("match setup failed")
			m.end(nil, false)
			return true
		}
	}
	for _, cmd := range m.queue.Drain() {
		if m.state == Over {
			m.logger.WithField("seat", cmd.Seat).Debug("ignoring command for finished match")
			continue
		}
		m.applySafe(cmd)
	}
	return m.state == Over
}

// applySafe keeps a panicking command from taking the scheduler down.
func (m *Match) applySafe(cmd Command) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.WithFields(logrus.Fields{"seat": cmd.Seat, "panic": r}).Error("command handler panicked")
		}
	}()
	if cmd.Leave {
		m.leaveSeat(cmd.Seat)
		return
	}
	if err := m.apply(cmd.Seat, cmd.Payload); err != nil {
		m.logger.WithFields(logrus.Fields{"seat": cmd.Seat}).WithError(err).Warn("dropping malformed game message")
	}
}

var errSetupSeats = errors.New("match needs at least one seat")

func (m *Match) setup() error {
	if len(m.seats) == 0 {
		return errSetupSeats
	}
	s := m.settings
	m.grid = grid.New(s.Rows, s.Cols, s.Hex, len(m.seats))
	opts := s.Maze
	opts.Rand = m.rng
	if err := maze.Generate(m.grid, s.Generator, opts); err != nil {
		return fmt.Errorf("failed to generate map: %w", err)
	}

	m.fogs = make([]*fog.FogOfWar, len(m.seats))
	for i := range m.seats {
		m.fogs[i] = fog.New(m.grid, s.VisionRange)
	}
	m.recomputeFog()

	meta := make([]protocol.SeatMeta, len(m.seats))
	for i, st := range m.seats {
		for _, id := range st.deck.CardIDs {
			tpl, err := m.cards.TemplateByID(id)
			if err != nil {
				m.logger.WithFields(logrus.Fields{"seat": i, "card": id}).WithError(err).Warn("skipping unknown card in deck")
				continue
			}
			c := &Card{
				Instance: m.nextCard,
				Template: tpl,
				Owner:    i,
				Location: LocationDeck,
				known:    make([]bool, len(m.seats)),
			}
			m.nextCard++
			m.cardByID[c.Instance] = c
			st.board.Deck = append(st.board.Deck, c)
		}
		meta[i] = protocol.SeatMeta{PlayerID: st.identity.ID, DeckSize: int32(len(st.board.Deck))}
	}

	m.sendAll(protocol.MatchMeta(m.grid.Rows, m.grid.Cols, m.grid.Hex, meta))
	for x := 0; x < m.grid.Rows; x++ {
		m.sendAll(protocol.MapRow(x, m.grid.Row(x)))
	}
	m.sendAll(protocol.MatchStart())
	m.state = AwaitingLevelLoad
	m.logger.WithFields(logrus.Fields{
		"seats":     len(m.seats),
		"generator": s.Generator.String(),
		"rows":      s.Rows,
		"cols":      s.Cols,
	}).Info("match set up")
	return nil
}

// begin deals the opening hands once every seat has loaded the level.
func (m *Match) begin() {
	for _, st := range m.seats {
		for _, c := range st.board.Deck {
			m.sendAll(protocol.CardInit(c.Instance, c.Owner, byte(LocationDeck)))
		}
	}
	for _, st := range m.seats {
		st.board.Shuffle(m.rng)
		for n := 0; n < m.settings.HandSize; n++ {
			c := st.board.Draw()
			if c == nil {
				break
			}
			m.sendCardMovement(c)
		}
	}
	m.turn = m.randomPresentSeat()
	m.state = InProgress
	m.sendAll(protocol.TurnChange(m.turn))
	m.logger.WithField("first_seat", m.turn).Info("match in progress")
}

func (m *Match) randomPresentSeat() int {
	var present []int
	for i, st := range m.seats {
		if st.present {
			present = append(present, i)
		}
	}
	if len(present) == 0 {
		return 0
	}
	return present[m.rng.Intn(len(present))]
}

func (m *Match) remainingSeats() []int {
	var out []int
	for i, st := range m.seats {
		if st.present {
			out = append(out, i)
		}
	}
	return out
}

func (m *Match) leaveSeat(seat int) {
	if seat < 0 || seat >= len(m.seats) || !m.seats[seat].present {
		return
	}
	st := m.seats[seat]
	st.present = false
	st.player.ExitMatch(m)
	m.logger.WithField("seat", seat).Info("player left match")

	over, winners := m.policy.SeatLeft(seat, m.remainingSeats())
	if over {
		m.end(winners, true)
		return
	}
	switch m.state {
	case AwaitingLevelLoad:
		m.maybeBegin()
	case InProgress:
		if m.turn == seat {
			m.advanceTurn()
		}
	}
}

func (m *Match) end(winners []int, playerLeft bool) {
	m.state = Over
	players := make([]models.Identity, len(m.seats))
	for i, st := range m.seats {
		players[i] = models.Identity{ID: st.identity.ID, Name: st.identity.Name}
	}
	m.result = &models.MatchResult{
		MatchID:    m.ID,
		LobbyID:    m.LobbyID,
		Players:    players,
		Winners:    winners,
		PlayerLeft: playerLeft,
		EndedAt:    time.Now(),
	}
	m.logger.WithFields(logrus.Fields{"winners": winners, "player_left": playerLeft}).Info("match over")
}

// Finish tells the remaining players the outcome and releases them. The
// scheduler calls it once, after removing the match from the live set.
func (m *Match) Finish() {
	var winners []int
	if m.result != nil {
		winners = m.result.Winners
	}
	msg := protocol.GameOver(winners)
	for _, st := range m.seats {
		if !st.present {
			continue
		}
		st.player.Send(msg)
		st.player.ExitMatch(m)
	}
}

func (m *Match) recordAction(seat int, kind string, payload map[string]interface{}) {
	if m.actions == nil {
		return
	}
	m.actionSeq++
	m.actions.RecordAction(models.MatchAction{
		MatchID:     m.ID,
		ActionIndex: m.actionSeq,
		Seat:        seat,
		ActorID:     m.seats[seat].identity.ID,
		ActionType:  kind,
		Payload:     payload,
		Timestamp:   time.Now().UnixMilli(),
	})
}
