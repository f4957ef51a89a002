// internal/match/policy.go
package match

// EndStatePolicy decides what a departure means for the match.
type EndStatePolicy interface {
	// SeatLeft is called after seat left. remaining lists the seats still
	// present. It returns whether the match is over and, if so, who won.
	SeatLeft(seat int, remaining []int) (over bool, winners []int)
}

// ForfeitOnLeave ends the match on the first departure; everyone still
// seated wins. In a two-seat match that is the lone opponent.
type ForfeitOnLeave struct{}

func (ForfeitOnLeave) SeatLeft(_ int, remaining []int) (bool, []int) {
	winners := make([]int, len(remaining))
	copy(winners, remaining)
	return true, winners
}

// LastSeatStanding keeps the match going until at most one seat remains.
type LastSeatStanding struct{}

func (LastSeatStanding) SeatLeft(_ int, remaining []int) (bool, []int) {
	if len(remaining) > 1 {
		return false, nil
	}
	winners := make([]int, len(remaining))
	copy(winners, remaining)
	return true, winners
}
