package session

import (
	"testing"

	"github.com/jason-s-yu/cardmage/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLobby struct{ id int32 }

func (l *fakeLobby) ID() int32 { return l.id }

type fakeMatch struct{}

func (*fakeMatch) Submit(*Player, []byte) {}
func (*fakeMatch) Leave(*Player)          {}

func TestContextTransitions(t *testing.T) {
	p := NewPlayer(models.Identity{ID: -1, Name: "guest-1"}, 4)
	l := &fakeLobby{id: 3}
	m := &fakeMatch{}

	require.NoError(t, p.EnterLobby(l))
	assert.Equal(t, InLobby, p.Context())
	assert.ErrorIs(t, p.EnterLobby(&fakeLobby{id: 4}), ErrAlreadyAttached)

	require.NoError(t, p.EnterMatch(l, m, 1))
	got, seat := p.Match()
	assert.Equal(t, m, got)
	assert.Equal(t, 1, seat)
	assert.Nil(t, p.Lobby())

	// a stale lobby exit is ignored
	p.ExitLobby(l)
	assert.Equal(t, InMatch, p.Context())

	p.ExitMatch(m)
	p.ExitMatch(m)
	assert.Equal(t, Unattached, p.Context())
	_, seat = p.Match()
	assert.Equal(t, -1, seat)
}

func TestSendStopsAfterClose(t *testing.T) {
	p := NewPlayer(models.Identity{ID: 1, Name: "alice"}, 2)
	assert.True(t, p.Send([]byte{1}))

	p.CloseOutbound()
	p.CloseOutbound()
	assert.False(t, p.Send([]byte{2}))
	assert.False(t, p.TrySend([]byte{3}))
	assert.False(t, p.Overflowed())

	var got [][]byte
	for payload := range p.Outbound() {
		got = append(got, payload)
	}
	assert.Equal(t, [][]byte{{1}}, got)
}

func TestSendOverflowClosesQueue(t *testing.T) {
	p := NewPlayer(models.Identity{ID: 1, Name: "alice"}, 2)
	assert.True(t, p.Send([]byte{1}))
	assert.True(t, p.Send([]byte{2}))
	assert.False(t, p.Send([]byte{3}), "full queue")
	assert.True(t, p.Overflowed())
	assert.False(t, p.Send([]byte{4}))

	// closing again after an overflow must not panic
	p.CloseOutbound()

	var got [][]byte
	for payload := range p.Outbound() {
		got = append(got, payload)
	}
	assert.Equal(t, [][]byte{{1}, {2}}, got, "queued payloads still reach the writer")
}

func TestTrySendDropsWithoutClosing(t *testing.T) {
	p := NewPlayer(models.Identity{ID: 1, Name: "alice"}, 1)
	assert.True(t, p.TrySend([]byte{1}))
	assert.False(t, p.TrySend([]byte{2}))
	assert.False(t, p.Overflowed())

	<-p.Outbound()
	assert.True(t, p.Send([]byte{3}))
}

func TestLoginAndDecks(t *testing.T) {
	p := NewPlayer(models.Identity{ID: -1, Name: "guest-1"}, 1)
	assert.Equal(t, models.DefaultDeck(), p.ActiveDeck(), "guests play the starter deck")

	second := models.Deck{Name: "rush", CardIDs: []int32{0, 0, 0}}
	require.NoError(t, p.Login(models.Identity{ID: 9, Name: "testuser", Decks: []models.Deck{models.DefaultDeck(), second}}))
	assert.True(t, p.LoggedIn())

	require.NoError(t, p.SelectDeck(1))
	assert.Equal(t, second, p.ActiveDeck())
	assert.ErrorIs(t, p.SelectDeck(2), ErrNoSuchDeck)

	require.NoError(t, p.EnterLobby(&fakeLobby{}))
	assert.ErrorIs(t, p.Login(models.Identity{ID: 10}), ErrAlreadyAttached)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := NewPlayer(models.Identity{ID: 1}, 1)
	b := NewPlayer(models.Identity{ID: 2}, 1)
	r.Add(a)
	r.Add(b)
	assert.Equal(t, 2, r.Len())

	got, ok := r.Get(a.SessionID)
	require.True(t, ok)
	assert.Same(t, a, got)

	r.Remove(a)
	r.Remove(a)
	assert.Equal(t, 1, r.Len())
	assert.ElementsMatch(t, []*Player{b}, r.Snapshot())
}
