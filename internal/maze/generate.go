// internal/maze/generate.go
package maze

import (
	"fmt"
	"math/rand"

	"github.com/jason-s-yu/cardmage/internal/grid"
)

// Generate fills a freshly allocated grid: it runs the chosen generator from
// a random odd in-mask cell, places any seat the generator left unplaced,
// joins stray walkable components, and finally opens random walls.
func Generate(g *grid.Grid, kind Kind, opts Options) error {
	if size := MinSize(kind); g.Rows < size || g.Cols < size {
		return fmt.Errorf("%w: %s needs %dx%d, got %dx%d", ErrMapTooSmall, kind, size, size, g.Rows, g.Cols)
	}
	if len(g.Seats) > grid.MaxSeats {
		return fmt.Errorf("%d seats requested, at most %d supported", len(g.Seats), grid.MaxSeats)
	}
	rng := opts.rng()
	opts.Rand = rng
	gen, err := New(kind, opts)
	if err != nil {
		return err
	}

	gen.GenerateMaze(g, g.RandomOddCell(rng))
	resolveScratch(g)
	if err := placeSeats(g, rng); err != nil {
		return err
	}
	g.Connect()
	if !g.Connected() {
		return ErrDisconnected
	}
	loosen(g, rng, opts.WallRemoval)
	return nil
}

// resolveScratch turns the generation markers into final tiles: unresolved
// cells and closed fences become wall, open fences become floor.
func resolveScratch(g *grid.Grid) {
	g.Replace(grid.Uninitialized, grid.Wall)
	g.Replace(grid.TempMark1, grid.Wall)
	g.Replace(grid.TempMark2, grid.Traversable)
}

// loosen opens interior walls with probability p. Only walls touching the
// walkable area are eligible, so no isolated pocket can appear.
func loosen(g *grid.Grid, rng *rand.Rand, p float64) {
	if p <= 0 {
		return
	}
	for x := 1; x < g.Rows-1; x++ {
		for y := 1; y < g.Cols-1; y++ {
			pos := grid.Position{X: x, Y: y}
			if g.At(pos) != grid.Wall || !g.Interior(pos) {
				continue
			}
			if rng.Float64() > p || !touchesFloor(g, pos) {
				continue
			}
			g.Set(pos, grid.Traversable)
		}
	}
}

func touchesFloor(g *grid.Grid, p grid.Position) bool {
	for _, d := range g.Directions() {
		if g.At(p.Add(d)).SeeThrough() {
			return true
		}
	}
	return false
}

// placeSeats puts every unplaced seat on the floor cell farthest from the
// seats placed so far. The first seat lands on a random floor cell.
func placeSeats(g *grid.Grid, rng *rand.Rand) error {
	for i, seat := range g.Seats {
		if seat.IsSet() {
			continue
		}
		var placed []grid.Position
		for _, s := range g.Seats {
			if s.IsSet() {
				placed = append(placed, s)
			}
		}

		var floor []grid.Position
		for x := 0; x < g.Rows; x++ {
			for y := 0; y < g.Cols; y++ {
				if p := (grid.Position{X: x, Y: y}); g.At(p) == grid.Traversable {
					floor = append(floor, p)
				}
			}
		}
		if len(floor) == 0 {
			return ErrNoRoom
		}

		pick := floor[rng.Intn(len(floor))]
		if len(placed) > 0 {
			dist := g.Distances(placed)
			best := -1
			for _, p := range floor {
				if d := dist[p.X*g.Cols+p.Y]; d > best {
					best, pick = d, p
				}
			}
		}
		g.Set(pick, grid.SeatTile(i))
		g.Seats[i] = pick
	}
	return nil
}
