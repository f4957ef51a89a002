// internal/maze/growing_tree.go
package maze

import (
	"math/rand"

	"github.com/jason-s-yu/cardmage/internal/grid"
)

// growingTree picks a random frontier cell each step instead of the newest one,
// which gives shorter, bushier corridors than dfs.
type growingTree struct {
	rng *rand.Rand
}

func (t *growingTree) GenerateMaze(g *grid.Grid, start grid.Position) {
	g.Set(start, grid.Traversable)
	frontier := []grid.Position{start}
	for len(frontier) > 0 {
		i := t.rng.Intn(len(frontier))
		cur := frontier[i]
		neighbors := g.UninitializedNeighbors(cur)
		if len(neighbors) == 0 {
			frontier[i] = frontier[len(frontier)-1]
			frontier = frontier[:len(frontier)-1]
			continue
		}
		next := neighbors[t.rng.Intn(len(neighbors))]
		g.Set(next, grid.Traversable)
		g.Set(grid.Midpoint(cur, next), grid.Traversable)
		frontier = append(frontier, next)
	}
}
