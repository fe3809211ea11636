// Package nav provides A* pathfinding over the walkable grid and an
// asynchronous search service decoupled from the simulation tick.
package nav

import (
	"container/heap"
	"errors"

	"github.com/talgya/society-sim/internal/grid"
)

// Diag is the length of a diagonal step.
const Diag = 1.41421356237

var (
	// ErrNotWalkable marks a start or goal endpoint that is out of bounds
	// or on a non-walkable cell.
	ErrNotWalkable = errors.New("nav: endpoint not walkable")

	// ErrNoPath marks a search that exhausted the frontier without
	// reaching the goal.
	ErrNoPath = errors.New("nav: no path")
)

// node is an open-set entry. seq preserves insertion order so that
// equal-f ties break deterministically.
type node struct {
	f, g float64
	seq  uint64
	cell grid.Cell
}

type openHeap []node

func (h openHeap) Len() int { return len(h) }
func (h openHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].seq < h[j].seq
}
func (h openHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *openHeap) Push(x any) { *h = append(*h, x.(node)) }
func (h *openHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// octile is the admissible heuristic for 8-directional movement:
// straight steps plus the diagonal surcharge.
func octile(a, b grid.Cell) float64 {
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	if dy > dx {
		dy, dx = dx, dy
	}
	return float64(dx) + (Diag-1)*float64(dy)
}

// FindPath runs A* from start to goal over an 8-connected neighborhood.
// Edge cost is step length (1 or √2) times the destination cell's cost.
// The returned path includes both endpoints. Endpoints that are out of
// bounds or non-walkable yield ErrNotWalkable; an exhausted frontier
// yields ErrNoPath. A failed search never returns a partial path.
func FindPath(g *grid.Grid, start, goal grid.Cell) ([]grid.Cell, error) {
	if !g.Walkable(start) || !g.Walkable(goal) {
		return nil, ErrNotWalkable
	}
	if start == goal {
		return []grid.Cell{start}, nil
	}

	h, w := g.Height(), g.Width()
	idx := func(c grid.Cell) int { return c.Y*w + c.X }

	const unvisited = -1.0
	gScore := make([]float64, h*w)
	for i := range gScore {
		gScore[i] = unvisited
	}
	parent := make([]int32, h*w)
	for i := range parent {
		parent[i] = -1
	}
	gScore[idx(start)] = 0

	open := openHeap{{f: octile(start, goal), g: 0, seq: 0, cell: start}}
	heap.Init(&open)
	var seq uint64

	for open.Len() > 0 {
		cur := heap.Pop(&open).(node)
		if cur.cell == goal {
			return reconstruct(parent, w, start, goal), nil
		}
		// Stale entry: a cheaper route to this cell was already expanded.
		if cur.g > gScore[idx(cur.cell)] {
			continue
		}
		for _, d := range grid.Neighbors8 {
			next := grid.Cell{Y: cur.cell.Y + d.Y, X: cur.cell.X + d.X}
			if !g.Walkable(next) {
				continue
			}
			step := 1.0
			if d.Y != 0 && d.X != 0 {
				step = Diag
			}
			ng := cur.g + step*g.Cost(next)
			ni := idx(next)
			if gScore[ni] != unvisited && ng >= gScore[ni] {
				continue
			}
			gScore[ni] = ng
			parent[ni] = int32(idx(cur.cell))
			seq++
			heap.Push(&open, node{f: ng + octile(next, goal), g: ng, seq: seq, cell: next})
		}
	}
	return nil, ErrNoPath
}

// PathCost sums the edge costs along a path returned by FindPath.
func PathCost(g *grid.Grid, path []grid.Cell) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		step := 1.0
		if path[i].Y != path[i-1].Y && path[i].X != path[i-1].X {
			step = Diag
		}
		total += step * g.Cost(path[i])
	}
	return total
}

func reconstruct(parent []int32, w int, start, goal grid.Cell) []grid.Cell {
	var rev []grid.Cell
	c := goal
	for c != start {
		rev = append(rev, c)
		p := parent[c.Y*w+c.X]
		c = grid.Cell{Y: int(p) / w, X: int(p) % w}
	}
	rev = append(rev, start)
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}
