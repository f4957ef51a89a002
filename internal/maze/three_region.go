// internal/maze/three_region.go
package maze

import (
	"math/rand"

	"github.com/jason-s-yu/cardmage/internal/grid"
)

// threeRegion is the two-player layout: a base at each end, four random
// "arms" walking from the bases to the centre row, a border along that row,
// and a sub-maze grown in each of the three regions the arms fence off.
type threeRegion struct {
	rng             *rand.Rand
	sub             Generator
	bases           BaseLayout
	minWallDistance int
}

// arm is the current tip of one random walk.
type arm struct {
	x, y int
}

func (t *threeRegion) GenerateMaze(g *grid.Grid, _ grid.Position) {
	cols := g.Cols
	minD := t.minWallDistance

	seat0Col := between(t.rng, minD/2, (cols/2-minD+1)/2)*2 + 1
	seat1Col := between(t.rng, (cols/2+minD-1)/2, (cols-1-minD)/2)*2 + 1
	t.bases.PlaceBases(g, t.rng, seat0Col, seat1Col)

	mid := g.Rows / 2
	sixth := cols / 6

	a1 := t.walkBottomLeft(g, arm{4, seat0Col - 1}, mid, sixth)
	a2 := t.walkBottomRight(g, arm{4, seat0Col + 4}, mid, sixth)
	a3 := t.walkTopLeft(g, arm{g.Rows - 5, seat1Col - 4}, mid, sixth)
	a4 := t.walkTopRight(g, arm{g.Rows - 5, seat1Col + 1}, mid, sixth)

	minLeft, maxLeft := t.border(g, mid, a1, a3)
	minRight, maxRight := t.border(g, mid, a2, a4)

	t.grow(g, 1, minLeft-1)
	t.grow(g, maxLeft+1, minRight-1)
	t.grow(g, maxRight+1, cols-2)

	// The sub-mazes rarely reach the border's ends exactly.
	extend(g, mid, minLeft, maxLeft)
	extend(g, mid, minRight, maxRight)

	seal(g)
	resolveScratch(g)
}

// between returns a random int in [lo, hi), or lo when the range is empty.
func between(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo)
}

func (t *threeRegion) mark(g *grid.Grid, x, y int) {
	p := grid.Position{X: x, Y: y}
	if !g.Interior(p) || g.At(p).SeeThrough() {
		return
	}
	if t.rng.Intn(2) == 0 {
		g.Set(p, grid.TempMark1)
	} else {
		g.Set(p, grid.TempMark2)
	}
}

func clampCol(g *grid.Grid, y int) int {
	if y < 1 {
		return 1
	}
	if y > g.Cols-2 {
		return g.Cols - 2
	}
	return y
}

// walkBottomLeft drifts up and to the right, steering right when it gets close to the left edge.
func (t *threeRegion) walkBottomLeft(g *grid.Grid, a arm, mid, sixth int) arm {
	for a.x < mid {
		dir := 0
		if a.y > sixth {
			dir = t.rng.Intn(5)
		}
		switch dir {
		case 0, 1:
			a.x, a.y = a.x+1, clampCol(g, a.y+1)
			t.mark(g, a.x, a.y)
			if a.x < mid {
				a.x++
				t.mark(g, a.x, a.y)
			}
		case 2, 3:
			a.x++
			t.mark(g, a.x, a.y)
		case 4:
			a.y = clampCol(g, a.y-1)
			t.mark(g, a.x, a.y)
			a.x++
			t.mark(g, a.x, a.y)
		}
	}
	return a
}

// walkBottomRight drifts up and to the right, forced straight up when it strays past the middle third.
func (t *threeRegion) walkBottomRight(g *grid.Grid, a arm, mid, sixth int) arm {
	for a.x < mid {
		dir := 0
		if a.y-a.x <= sixth*3 {
			dir = t.rng.Intn(5)
		}
		switch dir {
		case 0, 1:
			a.x++
			t.mark(g, a.x, a.y)
			if a.x < mid {
				a.x, a.y = a.x+1, clampCol(g, a.y+1)
				t.mark(g, a.x, a.y)
			}
		case 2, 3:
			a.x, a.y = a.x+1, clampCol(g, a.y+1)
			t.mark(g, a.x, a.y)
		case 4:
			a.y = clampCol(g, a.y+1)
			t.mark(g, a.x, a.y)
			a.x, a.y = a.x+1, clampCol(g, a.y+1)
			t.mark(g, a.x, a.y)
		}
	}
	return a
}

// walkTopLeft mirrors walkBottomRight from the far base.
func (t *threeRegion) walkTopLeft(g *grid.Grid, a arm, mid, sixth int) arm {
	for a.x > mid {
		dir := 0
		if a.x-a.y <= g.Cols/2+sixth {
			dir = t.rng.Intn(5)
		}
		switch dir {
		case 0, 1:
			a.x--
			t.mark(g, a.x, a.y)
			if a.x > mid {
				a.x, a.y = a.x-1, clampCol(g, a.y-1)
				t.mark(g, a.x, a.y)
			}
		case 2, 3:
			a.x, a.y = a.x-1, clampCol(g, a.y-1)
			t.mark(g, a.x, a.y)
		case 4:
			a.y = clampCol(g, a.y-1)
			t.mark(g, a.x, a.y)
			a.x, a.y = a.x-1, clampCol(g, a.y-1)
			t.mark(g, a.x, a.y)
		}
	}
	return a
}

// walkTopRight mirrors walkBottomLeft from the far base.
func (t *threeRegion) walkTopRight(g *grid.Grid, a arm, mid, sixth int) arm {
	for a.x > mid {
		dir := 1
		if a.y <= g.Cols-sixth {
			dir = t.rng.Intn(5)
		}
		switch dir {
		case 0, 1:
			a.x, a.y = a.x-1, clampCol(g, a.y-1)
			t.mark(g, a.x, a.y)
			if a.x > mid {
				a.x--
				t.mark(g, a.x, a.y)
			}
		case 2, 3:
			a.x--
			t.mark(g, a.x, a.y)
		case 4:
			a.y = clampCol(g, a.y+1)
			t.mark(g, a.x, a.y)
			a.x--
			t.mark(g, a.x, a.y)
		}
	}
	return a
}

// border opens the centre row between the tips of two arms and returns the covered column span.
func (t *threeRegion) border(g *grid.Grid, mid int, a, b arm) (int, int) {
	g.Set(grid.Position{X: a.x, Y: a.y}, grid.TempMark2)
	g.Set(grid.Position{X: b.x, Y: b.y}, grid.TempMark2)
	lo, hi := a.y, b.y
	if lo > hi {
		lo, hi = hi, lo
	}
	for y := lo + 1; y < hi; y++ {
		g.Set(grid.Position{X: mid, Y: y}, grid.TempMark2)
	}
	return lo, hi
}

// extend pushes a centre-row border outward through cells that would
// resolve to wall until it meets floor or the edge of the board.
func extend(g *grid.Grid, mid, lo, hi int) {
	for p := (grid.Position{X: mid, Y: lo - 1}); g.Interior(p) && resolvesToWall(g.At(p)); p.Y-- {
		g.Set(p, grid.TempMark2)
	}
	for p := (grid.Position{X: mid, Y: hi + 1}); g.Interior(p) && resolvesToWall(g.At(p)); p.Y++ {
		g.Set(p, grid.TempMark2)
	}
}

func resolvesToWall(t grid.Tile) bool {
	return t == grid.Uninitialized || t == grid.TempMark1
}

// seal closes every open fence mark that cannot be reached from a seat.
// Arm walks and base fences leave such gaps boxed in by closed marks.
func seal(g *grid.Grid) {
	open := func(t grid.Tile) bool {
		return t.SeeThrough() || t == grid.TempMark2
	}
	seen := make(map[grid.Position]bool)
	var queue []grid.Position
	for _, s := range g.Seats {
		if s.IsSet() && !seen[s] {
			seen[s] = true
			queue = append(queue, s)
		}
	}
	if len(queue) == 0 {
		return
	}
	for i := 0; i < len(queue); i++ {
		for _, d := range g.Directions() {
			n := queue[i].Add(d)
			if seen[n] || !open(g.At(n)) {
				continue
			}
			seen[n] = true
			queue = append(queue, n)
		}
	}
	for x := 0; x < g.Rows; x++ {
		for y := 0; y < g.Cols; y++ {
			if p := (grid.Position{X: x, Y: y}); g.At(p) == grid.TempMark2 && !seen[p] {
				g.Set(p, grid.TempMark1)
			}
		}
	}
}

// grow runs the sub-generator from a random odd cell between columns lo and hi.
// Regions already swallowed by a neighbour's sub-maze are skipped.
func (t *threeRegion) grow(g *grid.Grid, lo, hi int) {
	if hi < lo {
		return
	}
	for attempt := 0; attempt < 64; attempt++ {
		p := grid.Position{
			X: between(t.rng, 0, (g.Rows-1)/2)*2 + 1,
			Y: between(t.rng, lo/2, (hi+1)/2)*2 + 1,
		}
		if p.Y < lo || p.Y > hi || !g.Interior(p) || g.At(p) != grid.Uninitialized {
			continue
		}
		t.sub.GenerateMaze(g, p)
		return
	}
}
