// internal/grid/grid.go
package grid

import (
	"math/rand"
	"strings"
)

// Position addresses a cell. X is the row, Y the column.
type Position struct {
	X int
	Y int
}

// Unset is the position of anything not placed on the map.
var Unset = Position{X: -1, Y: -1}

func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

func (p Position) IsSet() bool {
	return p != Unset
}

var (
	squareDirections = []Position{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}
	// W, NW, NE, E, SE, SW
	hexDirections = []Position{{0, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 0}, {-1, -1}}
)

// Grid is the playfield of a match. It is not safe for concurrent use; a match
// only touches it from the scheduler goroutine.
type Grid struct {
	Rows int
	Cols int
	Hex  bool
	// Seats holds each seat's base position, Unset until placed.
	Seats []Position

	tiles []Tile
}

// New allocates a grid with every in-mask cell Uninitialized.
func New(rows, cols int, hex bool, seats int) *Grid {
	g := &Grid{
		Rows:  rows,
		Cols:  cols,
		Hex:   hex,
		Seats: make([]Position, seats),
		tiles: make([]Tile, rows*cols),
	}
	for i := range g.Seats {
		g.Seats[i] = Unset
	}
	for x := 0; x < rows; x++ {
		for y := 0; y < cols; y++ {
			if g.inMask(x, y) {
				g.tiles[x*cols+y] = Uninitialized
			}
		}
	}
	return g
}

// hex boards are a diamond: |x-y| <= cols/2.
func (g *Grid) inMask(x, y int) bool {
	if !g.Hex {
		return true
	}
	d := x - y
	if d < 0 {
		d = -d
	}
	return d <= g.Cols/2
}

// Contains reports whether p lies inside the backing array.
func (g *Grid) Contains(p Position) bool {
	return p.X >= 0 && p.X < g.Rows && p.Y >= 0 && p.Y < g.Cols
}

// InMask reports whether p is a playable cell.
func (g *Grid) InMask(p Position) bool {
	return g.Contains(p) && g.inMask(p.X, p.Y)
}

// Interior reports whether p is in the mask and not on the outer ring of the array.
func (g *Grid) Interior(p Position) bool {
	return g.InMask(p) && p.X > 0 && p.Y > 0 && p.X < g.Rows-1 && p.Y < g.Cols-1
}

// At returns the tile at p, OutOfBounds outside the array.
func (g *Grid) At(p Position) Tile {
	if !g.Contains(p) {
		return OutOfBounds
	}
	return g.tiles[p.X*g.Cols+p.Y]
}

// Set writes t at p. Writes outside the mask are ignored.
func (g *Grid) Set(p Position, t Tile) {
	if !g.InMask(p) {
		return
	}
	g.tiles[p.X*g.Cols+p.Y] = t
}

// Directions returns the adjacency offsets: four for square boards, six for hex boards.
func (g *Grid) Directions() []Position {
	if g.Hex {
		return hexDirections
	}
	return squareDirections
}

// Adjacent reports whether b is one step from a.
func (g *Grid) Adjacent(a, b Position) bool {
	for _, d := range g.Directions() {
		if a.Add(d) == b {
			return true
		}
	}
	return false
}

// TraversableNeighbors returns the adjacent Traversable cells of p.
func (g *Grid) TraversableNeighbors(p Position) []Position {
	var out []Position
	for _, d := range g.Directions() {
		n := p.Add(d)
		if g.At(n) == Traversable {
			out = append(out, n)
		}
	}
	return out
}

// UninitializedNeighbors returns cells two steps away along each axis whose
// target and midpoint are both still Uninitialized. Targets never touch the
// outer ring, which stays wall.
func (g *Grid) UninitializedNeighbors(p Position) []Position {
	var out []Position
	for _, d := range g.Directions() {
		target := Position{X: p.X + 2*d.X, Y: p.Y + 2*d.Y}
		if target.X < 1 || target.Y < 1 || target.X > g.Rows-2 || target.Y > g.Cols-2 {
			continue
		}
		if g.At(target) == Uninitialized && g.At(p.Add(d)) == Uninitialized {
			out = append(out, target)
		}
	}
	return out
}

// Midpoint returns the cell between two cells two steps apart.
func Midpoint(a, b Position) Position {
	return Position{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// RandomOddCell picks a random in-mask cell with odd coordinates, retrying until one fits.
func (g *Grid) RandomOddCell(rng *rand.Rand) Position {
	for {
		p := Position{X: rng.Intn(g.Rows/2)*2 + 1, Y: rng.Intn(g.Cols/2)*2 + 1}
		if g.Interior(p) {
			return p
		}
	}
}

// Row returns the tiles of row x as bytes, ready for the map row message.
func (g *Grid) Row(x int) []byte {
	out := make([]byte, g.Cols)
	for y := 0; y < g.Cols; y++ {
		out[y] = byte(g.tiles[x*g.Cols+y])
	}
	return out
}

// Count returns how many cells hold t.
func (g *Grid) Count(t Tile) int {
	n := 0
	for _, v := range g.tiles {
		if v == t {
			n++
		}
	}
	return n
}

// Replace rewrites every from tile to to.
func (g *Grid) Replace(from, to Tile) {
	for i, v := range g.tiles {
		if v == from {
			g.tiles[i] = to
		}
	}
}

// String renders the grid as ASCII, handy in test failures.
func (g *Grid) String() string {
	var sb strings.Builder
	for x := g.Rows - 1; x >= 0; x-- {
		for y := 0; y < g.Cols; y++ {
			switch t := g.At(Position{x, y}); {
			case t == OutOfBounds:
				sb.WriteByte(' ')
			case t == Wall:
				sb.WriteByte('#')
			case t == Traversable:
				sb.WriteByte('.')
			case t.IsSeat():
				sb.WriteByte(byte('1' + t.Seat()))
			case t == Monster:
				sb.WriteByte('M')
			default:
				sb.WriteByte('?')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
