package fog

import (
	"testing"

	"github.com/jason-s-yu/cardmage/internal/grid"
	"github.com/stretchr/testify/assert"
)

func openGrid(rows, cols int, hex bool) *grid.Grid {
	g := grid.New(rows, cols, hex, 0)
	for x := 0; x < rows; x++ {
		for y := 0; y < cols; y++ {
			g.Set(grid.Position{X: x, Y: y}, grid.Traversable)
		}
	}
	return g
}

func TestRaysStopAtRange(t *testing.T) {
	g := openGrid(11, 11, false)
	f := New(g, DefaultRange)
	center := grid.Position{X: 5, Y: 5}
	f.Recompute(g, []grid.Position{center})

	assert.True(t, f.Visible(center))
	assert.True(t, f.Visible(grid.Position{X: 8, Y: 5}))
	assert.False(t, f.Visible(grid.Position{X: 9, Y: 5}))
	assert.True(t, f.Visible(grid.Position{X: 5, Y: 2}))
	assert.False(t, f.Visible(grid.Position{X: 5, Y: 1}))
	assert.False(t, f.Visible(grid.Position{X: 6, Y: 6}), "square boards have no diagonal rays")
	assert.Equal(t, 1+4*DefaultRange, f.Count())
}

func TestHexBoardsCastSixRays(t *testing.T) {
	g := openGrid(11, 11, true)
	f := New(g, 2)
	f.Recompute(g, []grid.Position{{X: 5, Y: 5}})

	assert.True(t, f.Visible(grid.Position{X: 7, Y: 7}))
	assert.True(t, f.Visible(grid.Position{X: 3, Y: 3}))
	assert.False(t, f.Visible(grid.Position{X: 7, Y: 3}))
	assert.Equal(t, 1+6*2, f.Count())
}

func TestWallsBlockButAreSeen(t *testing.T) {
	g := openGrid(9, 9, false)
	g.Set(grid.Position{X: 4, Y: 5}, grid.Wall)
	g.Set(grid.Position{X: 5, Y: 4}, grid.Monster)
	f := New(g, DefaultRange)
	f.Recompute(g, []grid.Position{{X: 4, Y: 4}})

	assert.True(t, f.Visible(grid.Position{X: 4, Y: 5}), "the blocking wall itself is visible")
	assert.False(t, f.Visible(grid.Position{X: 4, Y: 6}))
	assert.True(t, f.Visible(grid.Position{X: 5, Y: 4}), "a monster is seen")
	assert.False(t, f.Visible(grid.Position{X: 6, Y: 4}), "and blocks the ray")
	assert.True(t, f.Visible(grid.Position{X: 4, Y: 1}))
}

func TestViewerTileAlwaysVisible(t *testing.T) {
	g := grid.New(7, 7, false, 0)
	for x := 0; x < 7; x++ {
		for y := 0; y < 7; y++ {
			g.Set(grid.Position{X: x, Y: y}, grid.Wall)
		}
	}
	viewer := grid.Position{X: 3, Y: 3}
	g.Set(viewer, grid.Monster)
	f := New(g, DefaultRange)
	f.Recompute(g, []grid.Position{viewer})

	assert.True(t, f.Visible(viewer))
	assert.Equal(t, 5, f.Count(), "viewer plus one wall per axis")
}

func TestRecomputeForgetsOldViewers(t *testing.T) {
	g := openGrid(9, 9, false)
	f := New(g, DefaultRange)
	f.Recompute(g, []grid.Position{{X: 1, Y: 1}})
	assert.True(t, f.Visible(grid.Position{X: 1, Y: 2}))

	f.Recompute(g, []grid.Position{{X: 7, Y: 7}})
	assert.False(t, f.Visible(grid.Position{X: 1, Y: 2}))
	assert.True(t, f.Visible(grid.Position{X: 7, Y: 6}))
}

func TestUnionOfViewers(t *testing.T) {
	g := openGrid(15, 15, false)
	f := New(g, DefaultRange)
	f.Recompute(g, []grid.Position{{X: 2, Y: 2}, {X: 12, Y: 12}})
	assert.True(t, f.Visible(grid.Position{X: 2, Y: 5}))
	assert.True(t, f.Visible(grid.Position{X: 12, Y: 9}))
	assert.False(t, f.Visible(grid.Position{X: 7, Y: 7}))
}

func TestOutsideGridIsDark(t *testing.T) {
	g := openGrid(5, 5, false)
	f := New(g, DefaultRange)
	f.Recompute(g, []grid.Position{{X: 0, Y: 0}})
	assert.False(t, f.Visible(grid.Position{X: -1, Y: 0}))
	assert.False(t, f.Visible(grid.Unset))
}
