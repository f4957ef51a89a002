// internal/maze/base.go
package maze

import (
	"fmt"
	"math/rand"

	"github.com/jason-s-yu/cardmage/internal/grid"
)

// BaseKind selects a hand-made base pattern.
type BaseKind int

const (
	NoBase BaseKind = iota
	Base1
)

// BaseLayout stamps the two player bases: seat 0 on the second row at
// column seat0Col, seat 1 on the second-to-last row at column seat1Col.
type BaseLayout interface {
	PlaceBases(g *grid.Grid, rng *rand.Rand, seat0Col, seat1Col int)
}

func NewBaseLayout(kind BaseKind) (BaseLayout, error) {
	switch kind {
	case NoBase:
		return noBase{}, nil
	case Base1:
		return base1{}, nil
	}
	return nil, fmt.Errorf("unknown base layout %d", int(kind))
}

type noBase struct{}

func (noBase) PlaceBases(*grid.Grid, *rand.Rand, int, int) {}

// base1 is a small clearing around each seat fenced by scratch walls. Each
// fence has random gaps, at least one per side.
type base1 struct{}

type cell struct {
	dx, dy int
	t      grid.Tile
}

var (
	base1Near = []cell{
		{0, -2, grid.Traversable}, {0, -1, grid.Traversable}, {0, 1, grid.Traversable}, {0, 2, grid.Traversable},
		{1, -1, grid.Traversable}, {1, 0, grid.Traversable}, {1, 1, grid.Traversable}, {1, 2, grid.Traversable},
		{2, 0, grid.Traversable}, {2, 1, grid.Traversable}, {2, 2, grid.Traversable},
		{3, -1, grid.TempMark1}, {3, 0, grid.TempMark1}, {3, 3, grid.TempMark1}, {3, 4, grid.TempMark1},
	}
	base1Far = []cell{
		{0, -2, grid.Traversable}, {0, -1, grid.Traversable}, {0, 1, grid.Traversable}, {0, 2, grid.Traversable},
		{-1, -2, grid.Traversable}, {-1, -1, grid.Traversable}, {-1, 0, grid.Traversable}, {-1, 1, grid.Traversable},
		{-2, -2, grid.Traversable}, {-2, -1, grid.Traversable}, {-2, 0, grid.Traversable},
		{-3, -4, grid.TempMark1}, {-3, -3, grid.TempMark1}, {-3, 0, grid.TempMark1}, {-3, 1, grid.TempMark1},
	}
)

func (base1) PlaceBases(g *grid.Grid, rng *rand.Rand, seat0Col, seat1Col int) {
	near := grid.Position{X: 1, Y: seat0Col}
	far := grid.Position{X: g.Rows - 2, Y: seat1Col}

	stamp(g, near, base1Near)
	// fences: three cells per side wall, two in front
	fence(g, rng, []grid.Position{{X: 1, Y: seat0Col - 3}, {X: 2, Y: seat0Col - 2}, {X: 3, Y: seat0Col - 1}})
	fence(g, rng, []grid.Position{{X: 1, Y: seat0Col + 3}, {X: 2, Y: seat0Col + 3}, {X: 3, Y: seat0Col + 3}})
	fence(g, rng, []grid.Position{{X: 4, Y: seat0Col + 1}, {X: 4, Y: seat0Col + 2}})

	stamp(g, far, base1Far)
	fence(g, rng, []grid.Position{{X: far.X, Y: seat1Col - 3}, {X: far.X - 1, Y: seat1Col - 3}, {X: far.X - 2, Y: seat1Col - 3}})
	fence(g, rng, []grid.Position{{X: far.X, Y: seat1Col + 3}, {X: far.X - 1, Y: seat1Col + 2}, {X: far.X - 2, Y: seat1Col + 1}})
	fence(g, rng, []grid.Position{{X: far.X - 3, Y: seat1Col - 1}, {X: far.X - 3, Y: seat1Col - 2}})

	seats := []grid.Position{near, far}
	for i := 0; i < len(seats) && i < len(g.Seats); i++ {
		g.Set(seats[i], grid.SeatTile(i))
		g.Seats[i] = seats[i]
	}
}

func stamp(g *grid.Grid, origin grid.Position, cells []cell) {
	for _, c := range cells {
		g.Set(grid.Position{X: origin.X + c.dx, Y: origin.Y + c.dy}, c.t)
	}
}

// fence marks the cells as scratch wall, opening a random non-empty subset.
func fence(g *grid.Grid, rng *rand.Rand, cells []grid.Position) {
	open := 1 + rng.Intn(1<<len(cells)-1)
	for i, p := range cells {
		if open&(1<<i) != 0 {
			g.Set(p, grid.TempMark2)
		} else {
			g.Set(p, grid.TempMark1)
		}
	}
}
