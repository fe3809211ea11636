// Package grid provides the immutable walkable/cost grid underlying
// navigation, goal snapping, and spawn placement. Cells are addressed
// (y, x) row-major; one cell covers roughly 1.5 meters of ground.
package grid

// CellMeters is the physical edge length of one grid cell.
const CellMeters = 1.5

// Cell is a grid coordinate.
type Cell struct {
	Y int `json:"iy"`
	X int `json:"ix"`
}

// Neighbors8 lists the 8-connected neighbor offsets, straight moves first.
var Neighbors8 = [8]Cell{
	{Y: -1, X: 0}, {Y: 1, X: 0}, {Y: 0, X: -1}, {Y: 0, X: 1},
	{Y: -1, X: -1}, {Y: -1, X: 1}, {Y: 1, X: -1}, {Y: 1, X: 1},
}

// Manhattan returns the Manhattan distance between two cells.
func Manhattan(a, b Cell) int {
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	return dy + dx
}

// Grid is the per-run navigability model. Built once, never mutated:
// every component reads the same instance, and the pathfinder works
// from its own copy.
type Grid struct {
	h, w     int
	walkable []uint8
	cost     []uint8
}

// New builds a grid from row-major walkable and cost slices.
// Both slices must have length h*w; New copies them.
func New(h, w int, walkable, cost []uint8) *Grid {
	g := &Grid{
		h:        h,
		w:        w,
		walkable: make([]uint8, h*w),
		cost:     make([]uint8, h*w),
	}
	copy(g.walkable, walkable)
	copy(g.cost, cost)
	return g
}

// Height returns the number of rows.
func (g *Grid) Height() int { return g.h }

// Width returns the number of columns.
func (g *Grid) Width() int { return g.w }

// InBounds reports whether c lies inside the grid.
func (g *Grid) InBounds(c Cell) bool {
	return c.Y >= 0 && c.Y < g.h && c.X >= 0 && c.X < g.w
}

// Walkable reports whether c is inside the grid and traversable.
func (g *Grid) Walkable(c Cell) bool {
	return g.InBounds(c) && g.walkable[c.Y*g.w+c.X] == 1
}

// Cost returns the traversal cost of c. Costs below 1 are treated as 1
// so that the octile heuristic stays admissible.
func (g *Grid) Cost(c Cell) float64 {
	if !g.InBounds(c) {
		return 1
	}
	v := g.cost[c.Y*g.w+c.X]
	if v < 1 {
		return 1
	}
	return float64(v)
}

// Clamp snaps c to the nearest in-bounds cell.
func (g *Grid) Clamp(c Cell) Cell {
	if c.Y < 0 {
		c.Y = 0
	}
	if c.Y >= g.h {
		c.Y = g.h - 1
	}
	if c.X < 0 {
		c.X = 0
	}
	if c.X >= g.w {
		c.X = g.w - 1
	}
	return c
}

// DefaultSnapRadius bounds the nearest-walkable ring search.
const DefaultSnapRadius = 20

// NearestWalkable finds the walkable cell closest to seed by expanding
// square rings outward up to maxR. The scan order within a ring is fixed
// (top-to-bottom, left-to-right), so the result is deterministic. If no
// walkable cell is found the clamped seed is returned with ok=false.
func (g *Grid) NearestWalkable(seed Cell, maxR int) (Cell, bool) {
	seed = g.Clamp(seed)
	if g.Walkable(seed) {
		return seed, true
	}
	for r := 1; r <= maxR; r++ {
		y0, y1 := seed.Y-r, seed.Y+r
		x0, x1 := seed.X-r, seed.X+r
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				// Ring perimeter only; the interior was covered at smaller radii.
				if y != y0 && y != y1 && x != x0 && x != x1 {
					continue
				}
				c := Cell{Y: y, X: x}
				if g.Walkable(c) {
					return c, true
				}
			}
		}
	}
	return seed, false
}

// Copy returns a deep copy of the grid. The pathfinder worker receives
// one so that no memory is shared across the goroutine boundary.
func (g *Grid) Copy() *Grid {
	return New(g.h, g.w, g.walkable, g.cost)
}

// WalkableCells returns every walkable cell in scan order. Used for
// spawn sampling and diagnostics; the slice is freshly allocated.
func (g *Grid) WalkableCells() []Cell {
	var out []Cell
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			if g.walkable[y*g.w+x] == 1 {
				out = append(out, Cell{Y: y, X: x})
			}
		}
	}
	return out
}
