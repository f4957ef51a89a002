// internal/maze/dfs.go
package maze

import (
	"math/rand"

	"github.com/jason-s-yu/cardmage/internal/grid"
)

// dfs is a recursive backtracker: a perfect maze, every carved cell reachable.
type dfs struct {
	rng *rand.Rand
}

func (d *dfs) GenerateMaze(g *grid.Grid, start grid.Position) {
	g.Set(start, grid.Traversable)
	d.carve(g, start)
}

func (d *dfs) carve(g *grid.Grid, cur grid.Position) {
	neighbors := g.UninitializedNeighbors(cur)
	d.rng.Shuffle(len(neighbors), func(i, j int) {
		neighbors[i], neighbors[j] = neighbors[j], neighbors[i]
	})
	for _, next := range neighbors {
		// an earlier branch may have claimed it
		if g.At(next) != grid.Uninitialized {
			continue
		}
		g.Set(next, grid.Traversable)
		g.Set(grid.Midpoint(cur, next), grid.Traversable)
		d.carve(g, next)
	}
}
