// internal/maze/maze.go
package maze

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jason-s-yu/cardmage/internal/grid"
)

var (
	ErrUnknownKind  = errors.New("unknown maze generator")
	ErrMapTooSmall  = errors.New("map too small for generator")
	ErrDisconnected = errors.New("generated map is not connected")
	ErrNoRoom       = errors.New("no traversable tile left for a seat")
)

// Kind selects a generator.
type Kind int

const (
	DFS Kind = iota
	GrowingTree
	ThreeRegion
)

func (k Kind) String() string {
	switch k {
	case DFS:
		return "dfs"
	case GrowingTree:
		return "growing_tree"
	case ThreeRegion:
		return "three_region"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a config value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dfs":
		return DFS, nil
	case "growing_tree", "growingtree":
		return GrowingTree, nil
	case "three_region", "threeregion", "three_maze":
		return ThreeRegion, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Generator carves a topology into g starting from start.
type Generator interface {
	GenerateMaze(g *grid.Grid, start grid.Position)
}

// Options configure the generators. The zero value is usable.
type Options struct {
	// Sub is the generator the three-region layout uses for its sub-regions.
	Sub Kind
	// Bases selects the hand-made base pattern of the three-region layout.
	Bases BaseKind
	// WallRemoval is the chance of opening each eligible wall after carving.
	WallRemoval float64
	// MinWallDistance keeps bases away from the side walls.
	MinWallDistance int
	Rand            *rand.Rand
}

// Defaults returns the options used by the server unless configured otherwise.
func Defaults() Options {
	return Options{
		Sub:             DFS,
		Bases:           Base1,
		WallRemoval:     0.10,
		MinWallDistance: 4,
	}
}

func (o Options) rng() *rand.Rand {
	if o.Rand != nil {
		return o.Rand
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// New builds the generator for kind.
func New(kind Kind, opts Options) (Generator, error) {
	rng := opts.rng()
	switch kind {
	case DFS:
		return &dfs{rng: rng}, nil
	case GrowingTree:
		return &growingTree{rng: rng}, nil
	case ThreeRegion:
		if opts.Sub == ThreeRegion {
			return nil, fmt.Errorf("%w: three_region cannot nest itself", ErrUnknownKind)
		}
		sub, err := New(opts.Sub, Options{Rand: rng})
		if err != nil {
			return nil, err
		}
		bases, err := NewBaseLayout(opts.Bases)
		if err != nil {
			return nil, err
		}
		return &threeRegion{
			rng:             rng,
			sub:             sub,
			bases:           bases,
			minWallDistance: opts.MinWallDistance,
		}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
}

// MinSize returns the smallest rows/cols the generator accepts.
func MinSize(kind Kind) int {
	if kind == ThreeRegion {
		return 15
	}
	return 5
}
