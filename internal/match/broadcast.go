// internal/match/broadcast.go
package match

import (
	"github.com/jason-s-yu/cardmage/internal/grid"
	"github.com/jason-s-yu/cardmage/internal/protocol"
)

// sendAll queues payload for every seat still in the match.
func (m *Match) sendAll(payload []byte) {
	for i := range m.seats {
		m.sendSeat(i, payload)
	}
}

func (m *Match) sendSeat(seat int, payload []byte) {
	st := m.seats[seat]
	if !st.present {
		return
	}
	if !st.player.Send(payload) {
		// A full queue closes the connection; the seat's leave arrives through the reader.
		m.logger.WithField("seat", seat).Debug("seat connection closing, message not queued")
	}
}

// sendByVisibility sends build(true) to seats that can see p and build(false)
// to the rest, so every seat learns that something happened.
func (m *Match) sendByVisibility(p grid.Position, build func(visible bool) []byte) {
	for i := range m.seats {
		m.sendSeat(i, build(m.fogs[i].Visible(p)))
	}
}

// faceVisibleTo reports whether seat may see c's face where it currently lies.
func faceVisibleTo(c *Card, seat int) bool {
	switch c.Location {
	case LocationHand:
		return c.Owner == seat
	case LocationField, LocationGraveyard:
		return true
	}
	return false
}

// sendCardMovement announces c's new location to every seat. A seat that may
// now see the face for the first time gets CardFaceInit before the movement.
func (m *Match) sendCardMovement(c *Card) {
	move := protocol.CardMovement(c.Instance, c.Owner, byte(c.Location))
	for i := range m.seats {
		if faceVisibleTo(c, i) && !c.known[i] {
			c.known[i] = true
			m.sendSeat(i, protocol.CardFaceInit(c.Instance, c.Template.ID))
		}
		m.sendSeat(i, move)
	}
}

func (m *Match) reject(seat int, reason Reason, fields map[string]interface{}) {
	entry := m.logger.WithFields(fields).WithField("seat", seat).WithField("reason", reason.String())
	entry.Info("rejected game action")
	if m.settings.RejectionFeedback {
		m.sendSeat(seat, protocol.ActionRejected(byte(reason)))
	}
}

// viewers lists the positions seat sees from: its base and its live units.
func (m *Match) viewers(seat int) []grid.Position {
	out := []grid.Position{m.grid.Seats[seat]}
	for _, u := range m.units {
		if u.Owner == seat {
			out = append(out, grid.Position{X: u.X, Y: u.Y})
		}
	}
	return out
}

// recomputeFog rebuilds every seat's fog. Units block sight, so one unit
// moving can change what any seat sees.
func (m *Match) recomputeFog() {
	for i, f := range m.fogs {
		f.Recompute(m.grid, m.viewers(i))
	}
}
