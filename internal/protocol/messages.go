// internal/protocol/messages.go
package protocol

import (
	"fmt"

	"github.com/jason-s-yu/cardmage/internal/models"
)

// LobbyEntry is one row of a lobby listing.
type LobbyEntry struct {
	ID       int32
	MaxSeats int32
	Seated   int32
	Host     models.Identity
}

// SeatState describes one seat in a lobby snapshot. Occupant is nil for an empty seat.
type SeatState struct {
	Occupant *models.Identity
	Ready    bool
}

// SeatMeta is the per-seat part of the match header.
type SeatMeta struct {
	PlayerID int32
	DeckSize int32
}

// Ping is the keepalive payload.
func Ping() []byte {
	return []byte{ClientPing}
}

func writeIdentity(w *Writer, id models.Identity) {
	w.Int32(id.ID).String(id.Name)
}

func writeEntry(w *Writer, e LobbyEntry) {
	w.Int32(e.ID).Int32(e.MaxSeats).Int32(e.Seated)
	writeIdentity(w, e.Host)
}

// EntrySize is the encoded size of a single lobby entry.
func EntrySize(e LobbyEntry) int {
	w := NewWriter()
	writeEntry(w, e)
	return w.Len()
}

func LobbyList(entries []LobbyEntry) []byte {
	w := NewWriter(ClientMain, MainList).Int32(int32(len(entries)))
	for _, e := range entries {
		writeEntry(w, e)
	}
	return w.Bytes()
}

func LobbyFull() []byte {
	return []byte{ClientMain, MainLobbyFull}
}

func LobbyNotFound() []byte {
	return []byte{ClientMain, MainLobbyIDNotFound}
}

// LobbyJoin carries the full lobby snapshot to a player who just took a seat.
func LobbyJoin(lobbyID int32, seats []SeatState) []byte {
	w := NewWriter(ClientMain, MainLobbyJoin).Int32(lobbyID).Int32(int32(len(seats)))
	for _, s := range seats {
		if s.Occupant == nil {
			w.Int32(0)
			continue
		}
		writeIdentity(w, *s.Occupant)
		w.Bool(s.Ready)
	}
	return w.Bytes()
}

func LobbyLeave(seat int) []byte {
	return NewWriter(ClientMain, MainLobbyLeave).Int32(int32(seat)).Bytes()
}

func LobbyOtherJoin(seat int, id models.Identity) []byte {
	w := NewWriter(ClientMain, MainLobbyOtherJoin).Int32(int32(seat))
	writeIdentity(w, id)
	return w.Bytes()
}

func PlayerReady(seat int, ready bool) []byte {
	return NewWriter(ClientMain, MainPlayerReady).Int32(int32(seat)).Bool(ready).Bytes()
}

func LoginAccept(id models.Identity, token string) []byte {
	w := NewWriter(ClientMain, MainLoginAccept)
	writeIdentity(w, id)
	return w.String(token).Bytes()
}

func LoginReject(reason byte) []byte {
	return []byte{ClientMain, MainLoginReject, reason}
}

func DeckChanged(index int) []byte {
	return []byte{ClientMain, MainDeckChanged, byte(index)}
}

func MatchMeta(rows, cols int, hex bool, seats []SeatMeta) []byte {
	w := NewWriter(ClientGame, GameMeta).Int32(int32(rows)).Int32(int32(cols)).Bool(hex)
	for _, s := range seats {
		w.Int32(s.PlayerID).Int32(s.DeckSize)
	}
	return w.Bytes()
}

func MapRow(row int, tiles []byte) []byte {
	return NewWriter(ClientGame, GameMapRow).Int32(int32(row)).Raw(tiles).Bytes()
}

func MatchStart() []byte {
	return []byte{ClientGame, GameStart}
}

func CardInit(instance int32, owner int, location byte) []byte {
	return NewWriter(ClientGame, GameCardInit).Int32(instance).Int32(int32(owner)).Byte(location).Bytes()
}

func CardFaceInit(instance, cardID int32) []byte {
	return NewWriter(ClientGame, GameCardFaceInit).Int32(instance).Int32(cardID).Bytes()
}

func TurnChange(seat int) []byte {
	return NewWriter(ClientGameState, StateTurnChange).Int32(int32(seat)).Bytes()
}

func CardMovement(instance int32, board int, location byte) []byte {
	return NewWriter(ClientGameState, StateCardMovement).Int32(instance).Int32(int32(board)).Byte(location).Bytes()
}

// MonsterSpawn reports a spawn. Pass UnknownCoord for both coordinates when the receiver cannot see the tile.
func MonsterSpawn(card, unit, x, y int32) []byte {
	return NewWriter(ClientGameState, StateMonsterSpawn).Int32(card).Int32(unit).Int32(x).Int32(y).Bytes()
}

func MonsterMove(unit, x, y int32) []byte {
	return NewWriter(ClientGameState, StateMonsterMove).Int32(unit).Int32(x).Int32(y).Bytes()
}

func ActionRejected(reason byte) []byte {
	return []byte{ClientGameState, StateActionRejected, reason}
}

func GameOver(winners []int) []byte {
	w := NewWriter(ClientGameState, StateGameOver).Int32(int32(len(winners)))
	for _, seat := range winners {
		w.Int32(int32(seat))
	}
	return w.Bytes()
}

func readIdentity(r *Reader) (models.Identity, error) {
	id, err := r.Int32()
	if err != nil {
		return models.Identity{}, err
	}
	name, err := r.String()
	if err != nil {
		return models.Identity{}, err
	}
	return models.Identity{ID: id, Name: name}, nil
}

func expectTags(r *Reader, top, sub byte) error {
	a, err := r.Byte()
	if err != nil {
		return err
	}
	b, err := r.Byte()
	if err != nil {
		return err
	}
	if a != top || b != sub {
		return fmt.Errorf("unexpected tags [%d,%d], want [%d,%d]", a, b, top, sub)
	}
	return nil
}

// minEntrySize is a lobby list entry whose host has an empty name.
const minEntrySize = 20

// DecodeLobbyList parses a MainList payload.
func DecodeLobbyList(payload []byte) ([]LobbyEntry, error) {
	r := NewReader(payload)
	if err := expectTags(r, ClientMain, MainList); err != nil {
		return nil, err
	}
	n, err := r.Count(minEntrySize)
	if err != nil {
		return nil, err
	}
	entries := make([]LobbyEntry, 0, n)
	for i := 0; i < n; i++ {
		var e LobbyEntry
		if e.ID, err = r.Int32(); err != nil {
			return nil, err
		}
		if e.MaxSeats, err = r.Int32(); err != nil {
			return nil, err
		}
		if e.Seated, err = r.Int32(); err != nil {
			return nil, err
		}
		if e.Host, err = readIdentity(r); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// DecodeLobbyJoin parses a MainLobbyJoin payload.
func DecodeLobbyJoin(payload []byte) (int32, []SeatState, error) {
	r := NewReader(payload)
	if err := expectTags(r, ClientMain, MainLobbyJoin); err != nil {
		return 0, nil, err
	}
	lobbyID, err := r.Int32()
	if err != nil {
		return 0, nil, err
	}
	// an empty seat is a single zero id
	n, err := r.Count(4)
	if err != nil {
		return 0, nil, err
	}
	seats := make([]SeatState, n)
	for i := range seats {
		id, err := r.Int32()
		if err != nil {
			return 0, nil, err
		}
		if id == 0 {
			continue
		}
		name, err := r.String()
		if err != nil {
			return 0, nil, err
		}
		ready, err := r.Bool()
		if err != nil {
			return 0, nil, err
		}
		seats[i] = SeatState{Occupant: &models.Identity{ID: id, Name: name}, Ready: ready}
	}
	return lobbyID, seats, nil
}

// DecodeOtherJoin parses a MainLobbyOtherJoin payload.
func DecodeOtherJoin(payload []byte) (int, models.Identity, error) {
	r := NewReader(payload)
	if err := expectTags(r, ClientMain, MainLobbyOtherJoin); err != nil {
		return 0, models.Identity{}, err
	}
	seat, err := r.Int32()
	if err != nil {
		return 0, models.Identity{}, err
	}
	id, err := readIdentity(r)
	return int(seat), id, err
}
