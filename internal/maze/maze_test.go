package maze

import (
	"math/rand"
	"testing"

	"github.com/jason-s-yu/cardmage/internal/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertPlayable(t *testing.T, g *grid.Grid) {
	t.Helper()
	for _, scratch := range []grid.Tile{grid.Uninitialized, grid.TempMark1, grid.TempMark2} {
		assert.Zero(t, g.Count(scratch), "leftover %s tiles\n%s", scratch, g)
	}
	assert.True(t, g.Connected(), "walkable tiles split into %d components\n%s", len(g.Components()), g)
	for i, seat := range g.Seats {
		require.True(t, seat.IsSet(), "seat %d not placed", i)
		assert.Equal(t, grid.SeatTile(i), g.At(seat))
		for j := i + 1; j < len(g.Seats); j++ {
			assert.True(t, g.Reachable(seat, g.Seats[j]), "seat %d cannot reach seat %d\n%s", i, j, g)
		}
	}
}

func TestGenerateProducesConnectedMaps(t *testing.T) {
	cases := []struct {
		name  string
		kind  Kind
		sub   Kind
		rows  int
		cols  int
		hex   bool
		seats int
	}{
		{"dfs square", DFS, DFS, 21, 21, false, 2},
		{"dfs hex", DFS, DFS, 27, 27, true, 2},
		{"growing tree square", GrowingTree, DFS, 21, 31, false, 4},
		{"growing tree hex", GrowingTree, DFS, 27, 27, true, 3},
		{"three region hex dfs", ThreeRegion, DFS, 27, 27, true, 2},
		{"three region hex growing tree", ThreeRegion, GrowingTree, 27, 27, true, 2},
		{"three region square", ThreeRegion, DFS, 27, 27, false, 2},
		{"three region four seats", ThreeRegion, DFS, 31, 31, false, 4},
		{"even sizes", DFS, DFS, 20, 20, true, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for seed := int64(0); seed < 40; seed++ {
				g := grid.New(tc.rows, tc.cols, tc.hex, tc.seats)
				opts := Defaults()
				opts.Sub = tc.sub
				opts.Rand = rand.New(rand.NewSource(seed))
				require.NoError(t, Generate(g, tc.kind, opts), "seed %d", seed)
				assertPlayable(t, g)
				if t.Failed() {
					t.Fatalf("failed at seed %d", seed)
				}
			}
		})
	}
}

func TestHexMapsStayInsideTheDiamond(t *testing.T) {
	g := grid.New(27, 27, true, 2)
	opts := Defaults()
	opts.Rand = rand.New(rand.NewSource(7))
	require.NoError(t, Generate(g, ThreeRegion, opts))

	for x := 0; x < g.Rows; x++ {
		for y := 0; y < g.Cols; y++ {
			p := grid.Position{X: x, Y: y}
			if !g.InMask(p) {
				assert.Equal(t, grid.OutOfBounds, g.At(p), "tile outside the mask at %v", p)
			}
		}
	}
}

func TestThreeRegionSeatsSitAtOppositeEnds(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		g := grid.New(27, 27, true, 2)
		opts := Defaults()
		opts.Rand = rand.New(rand.NewSource(seed))
		require.NoError(t, Generate(g, ThreeRegion, opts))

		assert.Equal(t, 1, g.Seats[0].X)
		assert.Equal(t, 25, g.Seats[1].X)
		assert.Equal(t, 1, g.Seats[0].Y%2, "seat columns are odd")
		assert.Less(t, g.Seats[0].Y, g.Cols/2)
		assert.Greater(t, g.Seats[1].Y, g.Cols/2)
	}
}

func TestDFSCarvesATree(t *testing.T) {
	g := grid.New(15, 15, false, 0)
	gen, err := New(DFS, Options{Rand: rand.New(rand.NewSource(3))})
	require.NoError(t, err)
	gen.GenerateMaze(g, grid.Position{X: 1, Y: 1})

	// A perfect maze on the odd lattice reaches every odd cell, and has
	// exactly one corridor cell per extra room.
	rooms := 0
	for x := 1; x < g.Rows-1; x += 2 {
		for y := 1; y < g.Cols-1; y += 2 {
			assert.Equal(t, grid.Traversable, g.At(grid.Position{X: x, Y: y}))
			rooms++
		}
	}
	assert.Equal(t, 2*rooms-1, g.Count(grid.Traversable))
}

func TestGrowingTreeReachesEveryRoom(t *testing.T) {
	g := grid.New(15, 15, false, 0)
	gen, err := New(GrowingTree, Options{Rand: rand.New(rand.NewSource(11))})
	require.NoError(t, err)
	gen.GenerateMaze(g, grid.Position{X: 7, Y: 7})

	for x := 1; x < g.Rows-1; x += 2 {
		for y := 1; y < g.Cols-1; y += 2 {
			assert.Equal(t, grid.Traversable, g.At(grid.Position{X: x, Y: y}))
		}
	}
}

func TestWallRemovalNeverIsolatesTiles(t *testing.T) {
	g := grid.New(27, 27, false, 2)
	opts := Defaults()
	opts.WallRemoval = 0.9
	opts.Rand = rand.New(rand.NewSource(5))
	require.NoError(t, Generate(g, ThreeRegion, opts))
	assertPlayable(t, g)
}

func TestThreeRegionIsConnectedWithoutRepair(t *testing.T) {
	for _, hex := range []bool{true, false} {
		for seed := int64(0); seed < 100; seed++ {
			g := grid.New(27, 27, hex, 2)
			opts := Defaults()
			opts.Rand = rand.New(rand.NewSource(seed))
			gen, err := New(ThreeRegion, opts)
			require.NoError(t, err)
			gen.GenerateMaze(g, g.RandomOddCell(opts.Rand))

			require.True(t, g.Connected(), "hex=%v seed %d split into %d components\n%s", hex, seed, len(g.Components()), g)
			for _, scratch := range []grid.Tile{grid.Uninitialized, grid.TempMark1, grid.TempMark2} {
				require.Zero(t, g.Count(scratch), "hex=%v seed %d", hex, seed)
			}
			assert.True(t, g.Reachable(g.Seats[0], g.Seats[1]), "hex=%v seed %d", hex, seed)
		}
	}
}

func TestBorderExtendsToTheSubMazes(t *testing.T) {
	g := grid.New(15, 15, false, 0)
	mid := 7
	g.Set(grid.Position{X: mid, Y: 2}, grid.Traversable)
	g.Set(grid.Position{X: mid, Y: 4}, grid.TempMark1)
	g.Set(grid.Position{X: mid, Y: 12}, grid.Traversable)
	for y := 6; y <= 9; y++ {
		g.Set(grid.Position{X: mid, Y: y}, grid.TempMark2)
	}

	extend(g, mid, 6, 9)

	for y := 3; y <= 11; y++ {
		assert.Equal(t, grid.TempMark2, g.At(grid.Position{X: mid, Y: y}), "column %d", y)
	}
	assert.Equal(t, grid.Traversable, g.At(grid.Position{X: mid, Y: 2}))
	assert.Equal(t, grid.Traversable, g.At(grid.Position{X: mid, Y: 12}))
	assert.Equal(t, grid.Uninitialized, g.At(grid.Position{X: mid, Y: 1}))
}

func TestSealClosesUnreachableGaps(t *testing.T) {
	g := grid.New(9, 9, false, 1)
	g.Set(grid.Position{X: 1, Y: 1}, grid.SeatTile(0))
	g.Seats[0] = grid.Position{X: 1, Y: 1}
	g.Set(grid.Position{X: 1, Y: 2}, grid.TempMark2)
	g.Set(grid.Position{X: 1, Y: 3}, grid.Traversable)
	g.Set(grid.Position{X: 5, Y: 5}, grid.TempMark2)

	seal(g)

	assert.Equal(t, grid.TempMark2, g.At(grid.Position{X: 1, Y: 2}))
	assert.Equal(t, grid.TempMark1, g.At(grid.Position{X: 5, Y: 5}))
}

func TestWallRemovalRunsLast(t *testing.T) {
	generate := func(p float64) *grid.Grid {
		g := grid.New(21, 21, false, 2)
		opts := Defaults()
		opts.WallRemoval = p
		opts.Rand = rand.New(rand.NewSource(9))
		require.NoError(t, Generate(g, DFS, opts))
		return g
	}
	plain, loose := generate(0), generate(0.5)

	assert.Equal(t, plain.Seats, loose.Seats)
	for x := 0; x < plain.Rows; x++ {
		for y := 0; y < plain.Cols; y++ {
			p := grid.Position{X: x, Y: y}
			if plain.At(p).SeeThrough() {
				assert.Equal(t, plain.At(p), loose.At(p), "walkable tile changed at %v", p)
			}
		}
	}
	assert.Greater(t, loose.Count(grid.Traversable), plain.Count(grid.Traversable))
	assertPlayable(t, loose)
}

func TestGenerateRejectsBadInput(t *testing.T) {
	_, err := New(Kind(42), Defaults())
	assert.ErrorIs(t, err, ErrUnknownKind)

	opts := Defaults()
	opts.Sub = ThreeRegion
	_, err = New(ThreeRegion, opts)
	assert.ErrorIs(t, err, ErrUnknownKind)

	err = Generate(grid.New(9, 9, false, 2), ThreeRegion, Defaults())
	assert.ErrorIs(t, err, ErrMapTooSmall)
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"dfs": DFS, "growing_tree": GrowingTree, "Three_Region": ThreeRegion} {
		got, err := ParseKind(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseKind("prim")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
