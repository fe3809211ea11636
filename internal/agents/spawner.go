// Population spawning: deterministic placement of agents on walkable
// cells, with roles sampled by weight.
package agents

import (
	"fmt"
	"math/rand"

	"github.com/talgya/society-sim/internal/grid"
)

// Spawner creates agents with sequential ids and seeded randomness, so
// the same seed reproduces the same population.
type Spawner struct {
	rng  *rand.Rand
	next int
}

// NewSpawner creates a spawner seeded for deterministic runs.
func NewSpawner(seed int64) *Spawner {
	return &Spawner{rng: rand.New(rand.NewSource(seed))}
}

// sampleRole draws a role according to the sampling weights.
func (s *Spawner) sampleRole() Role {
	total := 0.0
	for _, r := range Roles {
		total += r.SamplingWeight()
	}
	pick := s.rng.Float64() * total
	for _, r := range Roles {
		pick -= r.SamplingWeight()
		if pick <= 0 {
			return r
		}
	}
	return Roles[len(Roles)-1]
}

// newAgent builds one agent at the given cell with mid-range needs.
func (s *Spawner) newAgent(c grid.Cell) *Agent {
	a := &Agent{
		ID:    AgentID(fmt.Sprintf("E%d", s.next)),
		Role:  s.sampleRole(),
		X:     float64(c.X) + 0.5,
		Y:     float64(c.Y) + 0.5,
		Needs: make(Needs, len(AllNeeds)),
	}
	s.next++
	for _, need := range AllNeeds {
		a.Needs[need] = 0.2 + s.rng.Float64()*0.3
	}
	return a
}

// SpawnRandom places n agents uniformly over the walkable cells.
func (s *Spawner) SpawnRandom(n int, g *grid.Grid) []*Agent {
	cells := g.WalkableCells()
	if len(cells) == 0 {
		return nil
	}
	out := make([]*Agent, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.newAgent(cells[s.rng.Intn(len(cells))]))
	}
	return out
}

// SpawnCluster places n agents gaussian-jittered around a center cell.
// Samples that land on non-walkable cells are retried; the attempt pool
// is bounded so a hostile center cannot loop forever.
func (s *Spawner) SpawnCluster(n int, g *grid.Grid, center grid.Cell, sigmaCells float64) []*Agent {
	if sigmaCells < 1 {
		sigmaCells = 1
	}
	out := make([]*Agent, 0, n)
	for attempts := 0; attempts < n*8 && len(out) < n; attempts++ {
		c := grid.Cell{
			Y: center.Y + int(s.rng.NormFloat64()*sigmaCells),
			X: center.X + int(s.rng.NormFloat64()*sigmaCells),
		}
		if !g.Walkable(c) {
			continue
		}
		out = append(out, s.newAgent(c))
	}
	// Top up from the uniform pool if the cluster was too constrained.
	if len(out) < n {
		out = append(out, s.SpawnRandom(n-len(out), g)...)
	}
	return out
}
