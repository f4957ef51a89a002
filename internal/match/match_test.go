package match

import (
	"context"
	"io"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardmage/internal/cards"
	"github.com/jason-s-yu/cardmage/internal/grid"
	"github.com/jason-s-yu/cardmage/internal/maze"
	"github.com/jason-s-yu/cardmage/internal/models"
	"github.com/jason-s-yu/cardmage/internal/protocol"
	"github.com/jason-s-yu/cardmage/internal/session"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLobby int32

func (l fakeLobby) ID() int32 { return int32(l) }

type resultSink struct {
	mu      sync.Mutex
	results []models.MatchResult
}

func (s *resultSink) StoreMatchResult(_ context.Context, _ uuid.UUID, r models.MatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return nil
}

type actionSink struct {
	mu      sync.Mutex
	actions []models.MatchAction
}

func (s *actionSink) RecordAction(a models.MatchAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, a)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testSettings() Settings {
	return Settings{
		Rows:        15,
		Cols:        15,
		Generator:   maze.DFS,
		Maze:        maze.Defaults(),
		VisionRange: 3,
		HandSize:    5,
	}
}

func testDeps() Deps {
	return Deps{
		Cards: cards.NewCatalog(
			cards.Template{ID: 0, Title: "Scout", Type: cards.Monster, Health: 1, Damage: 1, MovementRange: 3},
			cards.Template{ID: 1, Title: "Brute", Type: cards.Monster, Health: 4, Damage: 2, MovementRange: 3},
		),
		Logger: quietLogger(),
		Rand:   rand.New(rand.NewSource(7)),
	}
}

// newMatch seats n fresh players in a match as if a lobby had started it.
func newMatch(t *testing.T, n int, settings Settings, deps Deps) (*Match, []*session.Player) {
	t.Helper()
	lobby := fakeLobby(1)
	players := make([]*session.Player, n)
	for i := range players {
		players[i] = session.NewPlayer(models.Identity{ID: int32(i + 1), Name: "p"}, 4096)
		require.NoError(t, players[i].EnterLobby(lobby))
	}
	m := New(int32(lobby), players, settings, deps)
	for i, p := range players {
		require.NoError(t, p.EnterMatch(lobby, m, i))
	}
	return m, players
}

func drain(p *session.Player) [][]byte {
	var out [][]byte
	for {
		select {
		case msg, ok := <-p.Outbound():
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func count(msgs [][]byte, top, sub byte) int {
	n := 0
	for _, msg := range msgs {
		if len(msg) >= 2 && msg[0] == top && msg[1] == sub {
			n++
		}
	}
	return n
}

func find(msgs [][]byte, top, sub byte) []byte {
	for _, msg := range msgs {
		if len(msg) >= 2 && msg[0] == top && msg[1] == sub {
			return msg
		}
	}
	return nil
}

func int32s(t *testing.T, msg []byte, n int) []int32 {
	t.Helper()
	r := protocol.NewReader(msg)
	require.NoError(t, r.Skip(protocol.LenTagPair))
	out := make([]int32, n)
	for i := range out {
		v, err := r.Int32()
		require.NoError(t, err)
		out[i] = v
	}
	return out
}

// started drives a match through setup and level load, then clears outbound queues.
func started(t *testing.T, n int, settings Settings, deps Deps) (*Match, []*session.Player) {
	t.Helper()
	m, players := newMatch(t, n, settings, deps)
	m.Advance()
	for _, p := range players {
		m.Submit(p, []byte{protocol.CategoryGame, protocol.GameLevelLoaded})
	}
	m.Advance()
	require.Equal(t, InProgress, m.State())
	for _, p := range players {
		drain(p)
	}
	return m, players
}

func TestCommandQueueKeepsPerProducerOrder(t *testing.T) {
	var q CommandQueue
	const producers, each = 8, 500
	var wg sync.WaitGroup
	for s := 0; s < producers; s++ {
		wg.Add(1)
		go func(seat int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				q.Push(Command{Seat: seat, Payload: []byte{byte(i >> 8), byte(i)}})
			}
		}(s)
	}
	wg.Wait()

	cmds := q.Drain()
	require.Len(t, cmds, producers*each)
	assert.Equal(t, 0, q.Len())
	assert.Nil(t, q.Drain())

	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}
	for _, c := range cmds {
		v := int(c.Payload[0])<<8 | int(c.Payload[1])
		assert.Equal(t, last[c.Seat]+1, v, "seat %d out of order", c.Seat)
		last[c.Seat] = v
	}
}

func TestSetupSendsMapAndWaitsForLevelLoad(t *testing.T) {
	settings := testSettings()
	m, players := newMatch(t, 2, settings, testDeps())

	assert.False(t, m.Advance())
	assert.Equal(t, AwaitingLevelLoad, m.State())
	assert.True(t, m.Grid().Connected())
	for i := range players {
		assert.True(t, m.Grid().Seats[i].IsSet())
	}

	for _, p := range players {
		msgs := drain(p)
		require.Len(t, msgs, 1+settings.Rows+1)
		assert.Equal(t, []byte{protocol.ClientGame, protocol.GameMeta}, msgs[0][:2])
		meta := int32s(t, msgs[0], 2)
		assert.Equal(t, []int32{15, 15}, meta)
		for row := 0; row < settings.Rows; row++ {
			msg := msgs[1+row]
			assert.Equal(t, []byte{protocol.ClientGame, protocol.GameMapRow}, msg[:2])
			assert.Len(t, msg, 2+4+settings.Cols)
		}
		assert.Equal(t, protocol.MatchStart(), msgs[len(msgs)-1])
	}

	// one seat loading is not enough
	m.Submit(players[0], []byte{protocol.CategoryGame, protocol.GameLevelLoaded})
	m.Advance()
	assert.Equal(t, AwaitingLevelLoad, m.State())
}

func TestLevelLoadDealsOpeningHands(t *testing.T) {
	m, players := newMatch(t, 2, testSettings(), testDeps())
	m.Advance()
	drain(players[0])
	drain(players[1])

	for _, p := range players {
		m.Submit(p, []byte{protocol.CategoryGame, protocol.GameLevelLoaded})
	}
	m.Advance()
	require.Equal(t, InProgress, m.State())

	for i, p := range players {
		msgs := drain(p)
		assert.Equal(t, 40, count(msgs, protocol.ClientGame, protocol.GameCardInit))
		// faces of the seat's own hand only
		assert.Equal(t, 5, count(msgs, protocol.ClientGame, protocol.GameCardFaceInit))
		assert.Equal(t, 10, count(msgs, protocol.ClientGameState, protocol.StateCardMovement))
		turn := find(msgs, protocol.ClientGameState, protocol.StateTurnChange)
		require.NotNil(t, turn)
		assert.Equal(t, int32(m.turn), int32s(t, turn, 1)[0])
		assert.Len(t, m.seats[i].board.Hand, 5)
		assert.Len(t, m.seats[i].board.Deck, 15)
	}
}

// spawnTarget picks a direction from the seat's base where the next two tiles
// are interior and not a base, and opens them.
func spawnTarget(t *testing.T, m *Match, seat int) (grid.Position, grid.Position) {
	t.Helper()
	base := m.grid.Seats[seat]
	for _, d := range m.grid.Directions() {
		a := base.Add(d)
		b := a.Add(d)
		if !m.grid.Interior(a) || !m.grid.Interior(b) || m.grid.At(a).IsSeat() || m.grid.At(b).IsSeat() {
			continue
		}
		m.grid.Set(a, grid.Traversable)
		m.grid.Set(b, grid.Traversable)
		return a, b
	}
	t.Fatal("no room next to base")
	return grid.Unset, grid.Unset
}

func activation(instance int32, p grid.Position) []byte {
	return protocol.NewWriter(protocol.CategoryGame, protocol.GameCardActivation).
		Int32(instance).Int32(int32(p.X)).Int32(int32(p.Y)).Bytes()
}

func movement(unit int32, path ...grid.Position) []byte {
	w := protocol.NewWriter(protocol.CategoryGame, protocol.GameMonsterMovement).Int32(unit).Int32(int32(len(path)))
	for _, p := range path {
		w.Int32(int32(p.X)).Int32(int32(p.Y))
	}
	return w.Bytes()
}

func TestSpawnSplitsCoordinatesByVisibility(t *testing.T) {
	m, players := started(t, 2, testSettings(), testDeps())
	seat := m.turn
	other := 1 - seat
	target, _ := spawnTarget(t, m, seat)
	card := m.seats[seat].board.Hand[0]

	m.Submit(players[seat], activation(card.Instance, target))
	m.Advance()

	assert.Equal(t, grid.Monster, m.grid.At(target))
	assert.Equal(t, LocationField, card.Location)
	require.Len(t, m.units, 1)

	own := drain(players[seat])
	spawn := find(own, protocol.ClientGameState, protocol.StateMonsterSpawn)
	require.NotNil(t, spawn)
	assert.Equal(t, []int32{card.Instance, 0, int32(target.X), int32(target.Y)}, int32s(t, spawn, 4))
	assert.Zero(t, count(own, protocol.ClientGame, protocol.GameCardFaceInit), "owner already knew the face")

	theirs := drain(players[other])
	spawn = find(theirs, protocol.ClientGameState, protocol.StateMonsterSpawn)
	require.NotNil(t, spawn)
	want := []int32{card.Instance, 0, protocol.UnknownCoord, protocol.UnknownCoord}
	if m.fogs[other].Visible(target) {
		want = []int32{card.Instance, 0, int32(target.X), int32(target.Y)}
	}
	assert.Equal(t, want, int32s(t, spawn, 4))
	assert.Equal(t, 1, count(theirs, protocol.ClientGame, protocol.GameCardFaceInit))
}

func TestMonsterMovementUpdatesTiles(t *testing.T) {
	actions := &actionSink{}
	deps := testDeps()
	deps.Actions = actions
	m, players := started(t, 2, testSettings(), deps)
	seat := m.turn
	spawnAt, next := spawnTarget(t, m, seat)
	card := m.seats[seat].board.Hand[0]
	m.Submit(players[seat], activation(card.Instance, spawnAt))
	m.Advance()
	drain(players[seat])

	m.Submit(players[seat], movement(0, next))
	m.Advance()

	assert.Equal(t, grid.Traversable, m.grid.At(spawnAt))
	assert.Equal(t, grid.Monster, m.grid.At(next))
	assert.True(t, m.fogs[seat].Visible(next))
	move := find(drain(players[seat]), protocol.ClientGameState, protocol.StateMonsterMove)
	require.NotNil(t, move)
	assert.Equal(t, []int32{0, int32(next.X), int32(next.Y)}, int32s(t, move, 3))

	actions.mu.Lock()
	defer actions.mu.Unlock()
	require.Len(t, actions.actions, 2)
	assert.Equal(t, "card_activation", actions.actions[0].ActionType)
	assert.Equal(t, "monster_movement", actions.actions[1].ActionType)
	assert.Equal(t, 2, actions.actions[1].ActionIndex)
	assert.Equal(t, m.ID, actions.actions[1].MatchID)
}

func TestIllegalActionsAreRejected(t *testing.T) {
	tests := []struct {
		name     string
		feedback bool
	}{
		{name: "silent", feedback: false},
		{name: "with feedback", feedback: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := testSettings()
			settings.RejectionFeedback = tt.feedback
			m, players := started(t, 2, settings, testDeps())
			idle := 1 - m.turn
			card := m.seats[idle].board.Hand[0]
			target, _ := spawnTarget(t, m, idle)

			m.Submit(players[idle], activation(card.Instance, target))
			m.Advance()

			assert.Equal(t, LocationHand, card.Location)
			assert.Empty(t, m.units)
			msgs := drain(players[idle])
			if tt.feedback {
				require.Len(t, msgs, 1)
				assert.Equal(t, protocol.ActionRejected(byte(ReasonNotYourTurn)), msgs[0])
			} else {
				assert.Empty(t, msgs)
			}
		})
	}
}

func TestActivationValidation(t *testing.T) {
	settings := testSettings()
	settings.RejectionFeedback = true
	m, players := started(t, 2, settings, testDeps())
	seat := m.turn
	other := 1 - seat
	target, far := spawnTarget(t, m, seat)
	own := m.seats[seat].board.Hand[0]
	foreign := m.seats[other].board.Hand[0]
	inDeck := m.seats[seat].board.Deck[0]

	tests := []struct {
		name    string
		payload []byte
		reason  Reason
	}{
		{"unknown card", activation(9999, target), ReasonUnknownCard},
		{"not owner", activation(foreign.Instance, target), ReasonNotOwner},
		{"not in hand", activation(inDeck.Instance, target), ReasonNotInHand},
		{"not next to base", activation(own.Instance, far), ReasonInvalidTarget},
		{"on the base", activation(own.Instance, m.grid.Seats[seat]), ReasonInvalidTarget},
		{"unknown unit", movement(42, target), ReasonUnknownUnit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.Submit(players[seat], tt.payload)
			m.Advance()
			msgs := drain(players[seat])
			require.Len(t, msgs, 1)
			assert.Equal(t, protocol.ActionRejected(byte(tt.reason)), msgs[0])
		})
	}
}

func TestMovementValidation(t *testing.T) {
	settings := testSettings()
	settings.RejectionFeedback = true
	m, players := started(t, 2, settings, testDeps())
	seat := m.turn
	spawnAt, next := spawnTarget(t, m, seat)
	card := m.seats[seat].board.Hand[0]
	m.Submit(players[seat], activation(card.Instance, spawnAt))
	m.Advance()
	drain(players[seat])

	far := grid.Position{X: next.X + 5, Y: next.Y + 5}
	tests := []struct {
		name    string
		payload []byte
		reason  Reason
	}{
		{"not adjacent", movement(0, far), ReasonInvalidPath},
		{"too long", movement(0, next, spawnAt, next, spawnAt), ReasonPathTooLong},
		{"ends on base", movement(0, m.grid.Seats[seat]), ReasonInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.Submit(players[seat], tt.payload)
			m.Advance()
			msgs := drain(players[seat])
			require.Len(t, msgs, 1)
			assert.Equal(t, protocol.ActionRejected(byte(tt.reason)), msgs[0])
			assert.Equal(t, grid.Monster, m.grid.At(spawnAt))
		})
	}
}

func TestMalformedCommandsAreDropped(t *testing.T) {
	m, players := started(t, 2, testSettings(), testDeps())
	seat := m.turn
	for _, payload := range [][]byte{
		{protocol.CategoryGame},
		{protocol.CategoryGame, 9},
		{protocol.CategoryGame, protocol.GameCardActivation, 0, 0},
		{protocol.CategoryGame, protocol.GameEndTurn, 1},
		movement(0)[:protocol.LenMovementHeader],
		append(movement(0, grid.Position{X: 1, Y: 1}), 0),
	} {
		m.Submit(players[seat], payload)
	}
	assert.False(t, m.Advance())
	assert.Equal(t, InProgress, m.State())
	assert.Equal(t, seat, m.turn)
	assert.Empty(t, drain(players[seat]))
}

func TestEndTurnPassesToNextSeat(t *testing.T) {
	m, players := started(t, 2, testSettings(), testDeps())
	seat := m.turn
	next := 1 - seat

	m.Submit(players[next], []byte{protocol.CategoryGame, protocol.GameEndTurn})
	m.Advance()
	assert.Equal(t, seat, m.turn, "only the current seat may end the turn")

	m.Submit(players[seat], []byte{protocol.CategoryGame, protocol.GameEndTurn})
	m.Advance()
	assert.Equal(t, next, m.turn)
	assert.Len(t, m.seats[next].board.Hand, 6)

	msgs := drain(players[next])
	turn := find(msgs, protocol.ClientGameState, protocol.StateTurnChange)
	require.NotNil(t, turn)
	assert.Equal(t, int32(next), int32s(t, turn, 1)[0])
	assert.Equal(t, 1, count(msgs, protocol.ClientGame, protocol.GameCardFaceInit))
}

func TestLeaveEndsMatchAndSchedulerReportsIt(t *testing.T) {
	results := &resultSink{}
	s := NewScheduler(0, results, quietLogger())
	m, players := newMatch(t, 2, testSettings(), testDeps())
	s.Add(m)
	require.Equal(t, 1, s.Len())

	s.Tick()
	got, ok := s.Get(m.ID)
	require.True(t, ok)
	assert.Same(t, m, got)

	m.Leave(players[0])
	assert.Equal(t, session.Unattached, players[0].Context())
	s.Tick()
	s.Wait()

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, Over, m.State())
	assert.Equal(t, session.Unattached, players[1].Context())

	over := find(drain(players[1]), protocol.ClientGameState, protocol.StateGameOver)
	require.NotNil(t, over)
	assert.Equal(t, []int32{1, 1}, int32s(t, over, 2))
	assert.Nil(t, find(drain(players[0]), protocol.ClientGameState, protocol.StateGameOver))

	results.mu.Lock()
	defer results.mu.Unlock()
	require.Len(t, results.results, 1)
	r := results.results[0]
	assert.Equal(t, m.ID, r.MatchID)
	assert.True(t, r.PlayerLeft)
	assert.True(t, r.Won(1))
	assert.False(t, r.Won(0))
	assert.Len(t, r.Players, 2)
}

func TestLastSeatStandingKeepsPlaying(t *testing.T) {
	deps := testDeps()
	deps.Policy = LastSeatStanding{}
	m, players := started(t, 3, testSettings(), deps)
	current := m.turn

	m.Leave(players[current])
	assert.False(t, m.Advance())
	assert.Equal(t, InProgress, m.State())
	assert.NotEqual(t, current, m.turn, "turn moves past the departed seat")

	m.Leave(players[m.turn])
	assert.True(t, m.Advance())
	result, ok := m.Result()
	require.True(t, ok)
	require.Len(t, result.Winners, 1)
	assert.Equal(t, m.remainingSeats(), result.Winners)
}

func TestSubmitFromStrangerIsIgnored(t *testing.T) {
	m, _ := newMatch(t, 2, testSettings(), testDeps())
	stranger := session.NewPlayer(models.Identity{ID: 99}, 8)
	m.Submit(stranger, []byte{protocol.CategoryGame, protocol.GameLevelLoaded})
	m.Leave(stranger)
	assert.Equal(t, 0, m.queue.Len())
}

func TestSetupFailureEndsMatch(t *testing.T) {
	settings := testSettings()
	settings.Rows, settings.Cols = 3, 3
	m, players := newMatch(t, 2, settings, testDeps())
	assert.True(t, m.Advance())
	_, ok := m.Result()
	assert.True(t, ok)
	m.Finish()
	for _, p := range players {
		assert.Equal(t, session.Unattached, p.Context())
	}
}
