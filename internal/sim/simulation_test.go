package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/society-sim/internal/agents"
	"github.com/talgya/society-sim/internal/grid"
	"github.com/talgya/society-sim/internal/scenario"
)

// testAssets builds a small fully-walkable scenario with one POI per
// listed category.
func testAssets(n int, pois ...*scenario.POI) *scenario.Assets {
	walkable := make([]uint8, n*n)
	cost := make([]uint8, n*n)
	for i := range walkable {
		walkable[i] = 1
		cost[i] = 1
	}
	return &scenario.Assets{
		ScenarioID: "test",
		Grid:       grid.New(n, n, walkable, cost),
		POIs:       pois,
	}
}

func testAgent(id agents.AgentID, x, y float64) *agents.Agent {
	return &agents.Agent{
		ID:    id,
		Role:  agents.RoleResident,
		X:     x,
		Y:     y,
		Needs: agents.NewNeeds(0.1),
	}
}

// stepUntil advances the simulation in small ticks until cond holds,
// yielding between ticks so the pathfinder worker can respond.
func stepUntil(t *testing.T, s *Simulation, cond func() bool) {
	t.Helper()
	for i := 0; i < 4000; i++ {
		if cond() {
			return
		}
		s.Step(0.05)
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func TestNeedsDriveTripToArrival(t *testing.T) {
	cafe := &scenario.POI{Category: scenario.CategoryCafe, Pos: grid.Cell{Y: 1, X: 8}, Name: "Cafe"}
	assets := testAssets(10, cafe)

	a := testAgent("E0", 1.5, 1.5)
	a.Needs[agents.NeedCaffeine] = 0.9

	s := New(DefaultParams(), assets, []*agents.Agent{a}, nil, 1)
	defer s.Close()

	var trips []agents.TripSample
	s.OnTrip = func(ts agents.TripSample) { trips = append(trips, ts) }

	stepUntil(t, s, func() bool { return len(trips) > 0 })

	sample := trips[0]
	assert.Equal(t, agents.AgentID("E0"), sample.AgentID)
	assert.Equal(t, scenario.CategoryCafe, sample.Category)
	assert.Greater(t, sample.Duration, 0.0)
	assert.Greater(t, sample.Distance, 0.0)

	// Arrival decremented the driving need and cleared the route.
	assert.Less(t, a.Needs[agents.NeedCaffeine], 0.5)
	assert.False(t, a.HasPath())
	assert.Nil(t, a.Goal)
	assert.Equal(t, grid.Cell{Y: 1, X: 8}, a.Cell())
}

func TestCursorNeverPassesFinalWaypoint(t *testing.T) {
	assets := testAssets(10)
	a := testAgent("E0", 0.5, 0.5)
	s := New(DefaultParams(), assets, []*agents.Agent{a}, nil, 1)
	defer s.Close()

	a.Path = []grid.Cell{{Y: 0, X: 0}, {Y: 0, X: 1}, {Y: 0, X: 2}}
	a.Cursor = 0
	for i := 0; i < 200; i++ {
		if a.HasPath() {
			require.Less(t, a.Cursor, len(a.Path))
		}
		s.integrate(a, 0.05)
	}
	assert.False(t, a.HasPath(), "short path should have completed")
}

func TestStalePathResultDiscarded(t *testing.T) {
	poiA := &scenario.POI{Category: scenario.CategoryCafe, Pos: grid.Cell{Y: 0, X: 9}}
	poiB := &scenario.POI{Category: scenario.CategoryRetail, Pos: grid.Cell{Y: 9, X: 0}}
	assets := testAssets(10, poiA, poiB)

	a := testAgent("E0", 0.5, 0.5)
	s := New(DefaultParams(), assets, []*agents.Agent{a}, nil, 1)
	defer s.Close()

	// Two requests back to back: only the newer one may land.
	s.pursueGoal(a, &agents.Goal{POI: poiA, Need: agents.NeedCaffeine})
	s.pursueGoal(a, &agents.Goal{POI: poiB, Need: agents.NeedLeisure})

	stepUntil(t, s, func() bool { return a.HasPath() })

	assert.Equal(t, poiB.Pos, a.Path[len(a.Path)-1], "stale result overwrote the newer route")
	assert.Equal(t, poiB, a.Goal.POI)
}

func TestIdleReplanFallsBackToRandomPOI(t *testing.T) {
	poi := &scenario.POI{Category: scenario.CategoryOther, Pos: grid.Cell{Y: 5, X: 5}}
	assets := testAssets(10, poi)

	// Needs stay far below the activation threshold, so only the idle
	// fallback can put this agent in motion.
	a := testAgent("E0", 0.5, 0.5)
	s := New(DefaultParams(), assets, []*agents.Agent{a}, nil, 1)
	defer s.Close()

	stepUntil(t, s, func() bool { return a.HasPath() })
	assert.Equal(t, poi.Pos, a.Path[len(a.Path)-1])
}

func TestEligibleEnrollmentCapped(t *testing.T) {
	assets := testAssets(10)
	var pop []*agents.Agent
	for i := 0; i < 30; i++ {
		pop = append(pop, testAgent(agents.AgentID(string(rune('A'+i))), 0.5, 0.5))
	}

	p := DefaultParams()
	p.EligibleCap = 12
	s := New(p, assets, pop, nil, 1)
	defer s.Close()

	require.Len(t, s.Eligible, 12)
	for i, a := range pop {
		assert.Equal(t, i < 12, a.Eligible, "agent %d", i)
	}
}

func TestEventRingBounded(t *testing.T) {
	assets := testAssets(4)
	s := New(DefaultParams(), assets, nil, nil, 1)
	defer s.Close()

	for i := 0; i < maxEvents+200; i++ {
		s.emitEvent("test", "x")
	}
	assert.Len(t, s.Events, maxEvents)
	assert.Len(t, s.RecentEvents(10), 10)
}
