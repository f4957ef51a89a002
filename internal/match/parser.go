// internal/match/parser.go
package match

import (
	"errors"
	"fmt"

	"github.com/jason-s-yu/cardmage/internal/cards"
	"github.com/jason-s-yu/cardmage/internal/grid"
	"github.com/jason-s-yu/cardmage/internal/protocol"
	"github.com/sirupsen/logrus"
)

// Reason says why a game action was refused. Values go on the wire.
type Reason byte

const (
	ReasonWrongPhase Reason = iota
	ReasonNotYourTurn
	ReasonUnknownCard
	ReasonNotOwner
	ReasonNotInHand
	ReasonInvalidTarget
	ReasonUnknownUnit
	ReasonInvalidPath
	ReasonPathTooLong
)

func (r Reason) String() string {
	switch r {
	case ReasonWrongPhase:
		return "wrong_phase"
	case ReasonNotYourTurn:
		return "not_your_turn"
	case ReasonUnknownCard:
		return "unknown_card"
	case ReasonNotOwner:
		return "not_owner"
	case ReasonNotInHand:
		return "not_in_hand"
	case ReasonInvalidTarget:
		return "invalid_target"
	case ReasonUnknownUnit:
		return "unknown_unit"
	case ReasonInvalidPath:
		return "invalid_path"
	case ReasonPathTooLong:
		return "path_too_long"
	}
	return fmt.Sprintf("reason(%d)", byte(r))
}

var (
	ErrUnknownCommand = errors.New("unknown game command")
	ErrBadLength      = errors.New("game command has the wrong length")
)

// apply parses one game payload from seat and applies it. Returned errors are
// malformed input; rule violations are handled through reject.
func (m *Match) apply(seat int, payload []byte) error {
	if seat < 0 || seat >= len(m.seats) || !m.seats[seat].present {
		return fmt.Errorf("command from absent seat %d", seat)
	}
	if len(payload) < protocol.LenTagPair || payload[0] != protocol.CategoryGame {
		return fmt.Errorf("%w: %v", ErrUnknownCommand, payload)
	}
	switch payload[1] {
	case protocol.GameLevelLoaded:
		if len(payload) != protocol.LenTagPair {
			return fmt.Errorf("%w: level loaded with %d bytes", ErrBadLength, len(payload))
		}
		m.levelLoaded(seat)
	case protocol.GameCardActivation:
		if len(payload) != protocol.LenCardActivation {
			return fmt.Errorf("%w: card activation with %d bytes", ErrBadLength, len(payload))
		}
		r := protocol.NewReader(payload)
		_ = r.Skip(protocol.LenTagPair)
		instance, _ := r.Int32()
		x, _ := r.Int32()
		y, _ := r.Int32()
		m.activateCard(seat, instance, grid.Position{X: int(x), Y: int(y)})
	case protocol.GameMonsterMovement:
		path, unit, err := decodeMovement(payload)
		if err != nil {
			return err
		}
		m.moveMonster(seat, unit, path)
	case protocol.GameEndTurn:
		if len(payload) != protocol.LenTagPair {
			return fmt.Errorf("%w: end turn with %d bytes", ErrBadLength, len(payload))
		}
		m.endTurn(seat)
	default:
		return fmt.Errorf("%w: sub-tag %d", ErrUnknownCommand, payload[1])
	}
	return nil
}

func decodeMovement(payload []byte) ([]grid.Position, int32, error) {
	n := len(payload)
	if n < protocol.LenMovementHeader+protocol.LenPathStep || (n-protocol.LenMovementHeader)%protocol.LenPathStep != 0 {
		return nil, 0, fmt.Errorf("%w: monster movement with %d bytes", ErrBadLength, n)
	}
	r := protocol.NewReader(payload)
	_ = r.Skip(protocol.LenTagPair)
	unit, _ := r.Int32()
	count, _ := r.Int32()
	if int(count) != (n-protocol.LenMovementHeader)/protocol.LenPathStep {
		return nil, 0, fmt.Errorf("%w: path claims %d steps in %d bytes", ErrBadLength, count, n)
	}
	path := make([]grid.Position, count)
	for i := range path {
		x, _ := r.Int32()
		y, _ := r.Int32()
		path[i] = grid.Position{X: int(x), Y: int(y)}
	}
	return path, unit, nil
}

func (m *Match) levelLoaded(seat int) {
	if m.state != AwaitingLevelLoad {
		m.reject(seat, ReasonWrongPhase, logrus.Fields{"command": "level_loaded"})
		return
	}
	if m.seats[seat].loaded {
		return
	}
	m.seats[seat].loaded = true
	m.logger.WithField("seat", seat).Debug("seat loaded level")
	m.maybeBegin()
}

// maybeBegin starts play once every seat still present has loaded.
func (m *Match) maybeBegin() {
	if m.state != AwaitingLevelLoad {
		return
	}
	for _, st := range m.seats {
		if st.present && !st.loaded {
			return
		}
	}
	m.begin()
}

// checkTurn rejects commands outside InProgress or off-turn.
func (m *Match) checkTurn(seat int, command string) bool {
	if m.state != InProgress {
		m.reject(seat, ReasonWrongPhase, logrus.Fields{"command": command})
		return false
	}
	if m.turn != seat {
		m.reject(seat, ReasonNotYourTurn, logrus.Fields{"command": command, "turn": m.turn})
		return false
	}
	return true
}

func (m *Match) activateCard(seat int, instance int32, target grid.Position) {
	if !m.checkTurn(seat, "card_activation") {
		return
	}
	fields := logrus.Fields{"card": instance, "x": target.X, "y": target.Y}
	c, ok := m.cardByID[instance]
	if !ok {
		m.reject(seat, ReasonUnknownCard, fields)
		return
	}
	if c.Owner != seat {
		m.reject(seat, ReasonNotOwner, fields)
		return
	}
	if c.Location != LocationHand {
		m.reject(seat, ReasonNotInHand, fields)
		return
	}
	switch c.Template.Type {
	case cards.Monster:
		if !m.validSpawn(seat, target) {
			m.reject(seat, ReasonInvalidTarget, fields)
			return
		}
		m.seats[seat].board.Play(c)
		m.sendCardMovement(c)
		m.spawn(c, target)
	default:
		m.reject(seat, ReasonInvalidTarget, fields)
		return
	}
	m.recordAction(seat, "card_activation", map[string]interface{}{
		"card":    instance,
		"card_id": c.Template.ID,
		"x":       target.X,
		"y":       target.Y,
	})
}

// validSpawn accepts free traversable tiles next to the seat's base.
func (m *Match) validSpawn(seat int, p grid.Position) bool {
	base := m.grid.Seats[seat]
	return m.grid.Adjacent(base, p) && m.grid.At(p) == grid.Traversable
}

func (m *Match) spawn(c *Card, p grid.Position) {
	u := &Unit{
		ID:            m.nextUnit,
		Owner:         c.Owner,
		Card:          c.Instance,
		X:             p.X,
		Y:             p.Y,
		Health:        c.Template.Health,
		Damage:        c.Template.Damage,
		MovementRange: c.Template.MovementRange,
	}
	m.nextUnit++
	m.units[u.ID] = u
	m.grid.Set(p, grid.Monster)
	m.recomputeFog()
	m.sendByVisibility(p, func(visible bool) []byte {
		if visible {
			return protocol.MonsterSpawn(c.Instance, u.ID, int32(p.X), int32(p.Y))
		}
		return protocol.MonsterSpawn(c.Instance, u.ID, protocol.UnknownCoord, protocol.UnknownCoord)
	})
	m.logger.WithFields(logrus.Fields{"seat": c.Owner, "unit": u.ID, "x": p.X, "y": p.Y}).Debug("monster spawned")
}

// moveMonster walks unit along path. Every step must be adjacent to the
// previous one; intermediate steps may cross seat bases but the final tile
// must be free floor.
func (m *Match) moveMonster(seat int, unitID int32, path []grid.Position) {
	if !m.checkTurn(seat, "monster_movement") {
		return
	}
	fields := logrus.Fields{"unit": unitID, "steps": len(path)}
	u, ok := m.units[unitID]
	if !ok {
		m.reject(seat, ReasonUnknownUnit, fields)
		return
	}
	if u.Owner != seat {
		m.reject(seat, ReasonNotOwner, fields)
		return
	}
	if len(path) > u.MovementRange {
		m.reject(seat, ReasonPathTooLong, fields)
		return
	}
	from := grid.Position{X: u.X, Y: u.Y}
	cur := from
	for i, step := range path {
		if !m.grid.Adjacent(cur, step) || !m.grid.At(step).SeeThrough() {
			m.reject(seat, ReasonInvalidPath, fields)
			return
		}
		if i == len(path)-1 && m.grid.At(step) != grid.Traversable {
			m.reject(seat, ReasonInvalidPath, fields)
			return
		}
		cur = step
	}

	m.grid.Set(from, grid.Traversable)
	m.grid.Set(cur, grid.Monster)
	u.X, u.Y = cur.X, cur.Y
	m.recomputeFog()
	m.sendByVisibility(cur, func(visible bool) []byte {
		if visible {
			return protocol.MonsterMove(u.ID, int32(cur.X), int32(cur.Y))
		}
		return protocol.MonsterMove(u.ID, protocol.UnknownCoord, protocol.UnknownCoord)
	})
	m.recordAction(seat, "monster_movement", map[string]interface{}{
		"unit": unitID,
		"x":    cur.X,
		"y":    cur.Y,
	})
}

func (m *Match) endTurn(seat int) {
	if !m.checkTurn(seat, "end_turn") {
		return
	}
	m.recordAction(seat, "end_turn", nil)
	m.advanceTurn()
}

// advanceTurn passes the turn to the next seat still present, who draws a card.
func (m *Match) advanceTurn() {
	n := len(m.seats)
	for step := 1; step <= n; step++ {
		next := (m.turn + step) % n
		if !m.seats[next].present {
			continue
		}
		m.turn = next
		m.sendAll(protocol.TurnChange(next))
		if c := m.seats[next].board.Draw(); c != nil {
			m.sendCardMovement(c)
		}
		return
	}
}
