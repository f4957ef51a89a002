// internal/grid/connect.go
package grid

// Components groups the see-through cells (Traversable and seat tiles) into
// connected components under the board's adjacency.
func (g *Grid) Components() [][]Position {
	seen := make([]bool, len(g.tiles))
	var comps [][]Position
	for x := 0; x < g.Rows; x++ {
		for y := 0; y < g.Cols; y++ {
			start := Position{x, y}
			if seen[x*g.Cols+y] || !g.At(start).SeeThrough() {
				continue
			}
			seen[x*g.Cols+y] = true
			comp := []Position{start}
			for i := 0; i < len(comp); i++ {
				for _, d := range g.Directions() {
					n := comp[i].Add(d)
					if !g.Contains(n) || seen[n.X*g.Cols+n.Y] || !g.At(n).SeeThrough() {
						continue
					}
					seen[n.X*g.Cols+n.Y] = true
					comp = append(comp, n)
				}
			}
			comps = append(comps, comp)
		}
	}
	return comps
}

// Connected reports whether all see-through cells form a single component.
func (g *Grid) Connected() bool {
	return len(g.Components()) <= 1
}

// Connect joins every see-through component to the one holding the first
// placed seat (or the largest, when no seat is placed) by carving the
// shortest run of in-mask cells between them. It returns the number of cells
// carved.
func (g *Grid) Connect() int {
	carved := 0
	for {
		comps := g.Components()
		if len(comps) <= 1 {
			return carved
		}
		main := g.mainComponent(comps)
		inMain := make([]bool, len(g.tiles))
		for _, p := range comps[main] {
			inMain[p.X*g.Cols+p.Y] = true
		}
		other := comps[(main+1)%len(comps)]
		path := g.shortestBridge(other, inMain)
		if path == nil {
			// The mask itself is split; nothing more can be joined.
			return carved
		}
		for _, p := range path {
			if !g.At(p).SeeThrough() {
				g.Set(p, Traversable)
				carved++
			}
		}
	}
}

func (g *Grid) mainComponent(comps [][]Position) int {
	for _, seat := range g.Seats {
		if !seat.IsSet() {
			continue
		}
		for i, comp := range comps {
			for _, p := range comp {
				if p == seat {
					return i
				}
			}
		}
	}
	best := 0
	for i, comp := range comps {
		if len(comp) > len(comps[best]) {
			best = i
		}
	}
	return best
}

// shortestBridge runs a multi-source BFS from every cell of from through
// interior cells until it touches a cell marked in target. The returned path
// excludes both endpoints' components.
func (g *Grid) shortestBridge(from []Position, target []bool) []Position {
	prev := make([]int, len(g.tiles))
	for i := range prev {
		prev[i] = -2
	}
	queue := make([]Position, 0, len(from))
	for _, p := range from {
		prev[p.X*g.Cols+p.Y] = -1
		queue = append(queue, p)
	}
	for i := 0; i < len(queue); i++ {
		cur := queue[i]
		for _, d := range g.Directions() {
			n := cur.Add(d)
			if !g.Interior(n) {
				continue
			}
			idx := n.X*g.Cols + n.Y
			if prev[idx] != -2 {
				continue
			}
			prev[idx] = cur.X*g.Cols + cur.Y
			if target[idx] {
				var path []Position
				for at := prev[idx]; at >= 0 && prev[at] != -1; at = prev[at] {
					path = append(path, Position{X: at / g.Cols, Y: at % g.Cols})
				}
				return path
			}
			queue = append(queue, n)
		}
	}
	return nil
}

// Reachable reports whether b can be reached from a through see-through cells.
func (g *Grid) Reachable(a, b Position) bool {
	for _, comp := range g.Components() {
		hasA, hasB := false, false
		for _, p := range comp {
			hasA = hasA || p == a
			hasB = hasB || p == b
		}
		if hasA || hasB {
			return hasA && hasB
		}
	}
	return false
}

// Distances returns the step count from the nearest of from to every cell,
// walking only see-through cells. Unreached cells hold -1. Index is x*Cols+y.
func (g *Grid) Distances(from []Position) []int {
	dist := make([]int, len(g.tiles))
	for i := range dist {
		dist[i] = -1
	}
	queue := make([]Position, 0, len(from))
	for _, p := range from {
		if !g.Contains(p) {
			continue
		}
		dist[p.X*g.Cols+p.Y] = 0
		queue = append(queue, p)
	}
	for i := 0; i < len(queue); i++ {
		cur := queue[i]
		for _, d := range g.Directions() {
			n := cur.Add(d)
			if !g.Contains(n) || !g.At(n).SeeThrough() {
				continue
			}
			idx := n.X*g.Cols + n.Y
			if dist[idx] >= 0 {
				continue
			}
			dist[idx] = dist[cur.X*g.Cols+cur.Y] + 1
			queue = append(queue, n)
		}
	}
	return dist
}
