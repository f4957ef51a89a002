// internal/grid/tile.go
package grid

// Tile is the state of one map cell. The numeric values are sent to clients as-is.
type Tile byte

const (
	OutOfBounds Tile = iota
	Uninitialized
	Wall
	Traversable
	Player1
	Player2
	Player3
	Player4
	TempMark1
	TempMark2
	Monster
)

// MaxSeats is the number of distinct seat tiles.
const MaxSeats = 4

// SeatTile returns the tile marking the base of the given seat.
func SeatTile(seat int) Tile {
	return Player1 + Tile(seat)
}

// IsSeat reports whether t is one of the PlayerN tiles.
func (t Tile) IsSeat() bool {
	return t >= Player1 && t <= Player4
}

// Seat returns the seat index of a PlayerN tile, or -1.
func (t Tile) Seat() int {
	if !t.IsSeat() {
		return -1
	}
	return int(t - Player1)
}

// SeeThrough reports whether a visibility ray continues past this tile.
// The same set of tiles forms the walkable topology that generation keeps connected.
func (t Tile) SeeThrough() bool {
	return t == Traversable || t.IsSeat()
}

// IsScratch reports whether t is a marker that only exists while a maze is being built.
func (t Tile) IsScratch() bool {
	return t == Uninitialized || t == TempMark1 || t == TempMark2
}

func (t Tile) String() string {
	switch t {
	case OutOfBounds:
		return "out_of_bounds"
	case Uninitialized:
		return "uninitialized"
	case Wall:
		return "wall"
	case Traversable:
		return "traversable"
	case Player1, Player2, Player3, Player4:
		return "player"
	case TempMark1:
		return "temp_mark_1"
	case TempMark2:
		return "temp_mark_2"
	case Monster:
		return "monster"
	}
	return "unknown"
}
