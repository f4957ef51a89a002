// internal/fog/fog.go
package fog

import "github.com/jason-s-yu/cardmage/internal/grid"

// DefaultRange is how many tiles a viewer sees along each axis.
const DefaultRange = 3

// FogOfWar is one seat's visibility over a grid. It is always rebuilt from
// scratch and never updated incrementally.
type FogOfWar struct {
	rows, cols  int
	visionRange int
	visible     []bool
}

// New returns an all-dark fog sized for g.
func New(g *grid.Grid, visionRange int) *FogOfWar {
	if visionRange <= 0 {
		visionRange = DefaultRange
	}
	return &FogOfWar{
		rows:        g.Rows,
		cols:        g.Cols,
		visionRange: visionRange,
		visible:     make([]bool, g.Rows*g.Cols),
	}
}

// Recompute clears the fog and casts rays from every viewer along each of the
// board's axes. A ray marks each tile it reaches and stops at the first tile
// that is not see-through; that blocking tile is still marked.
func (f *FogOfWar) Recompute(g *grid.Grid, viewers []grid.Position) {
	for i := range f.visible {
		f.visible[i] = false
	}
	for _, v := range viewers {
		if !g.Contains(v) {
			continue
		}
		f.mark(v)
		for _, d := range g.Directions() {
			p := v
			for step := 0; step < f.visionRange; step++ {
				p = p.Add(d)
				if !g.InMask(p) {
					break
				}
				f.mark(p)
				if !g.At(p).SeeThrough() {
					break
				}
			}
		}
	}
}

func (f *FogOfWar) mark(p grid.Position) {
	f.visible[p.X*f.cols+p.Y] = true
}

// Visible reports whether p is currently in sight.
func (f *FogOfWar) Visible(p grid.Position) bool {
	if p.X < 0 || p.Y < 0 || p.X >= f.rows || p.Y >= f.cols {
		return false
	}
	return f.visible[p.X*f.cols+p.Y]
}

// Count returns the number of visible tiles.
func (f *FogOfWar) Count() int {
	n := 0
	for _, v := range f.visible {
		if v {
			n++
		}
	}
	return n
}
