package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/society-sim/internal/grid"
	"github.com/talgya/society-sim/internal/scenario"
)

func testPOIs() []*scenario.POI {
	return []*scenario.POI{
		{Category: scenario.CategoryCafe, Pos: grid.Cell{Y: 2, X: 2}, Name: "Near Cafe"},
		{Category: scenario.CategoryCafe, Pos: grid.Cell{Y: 8, X: 8}, Name: "Far Cafe"},
		{Category: scenario.CategoryRestaurant, Pos: grid.Cell{Y: 5, X: 5}, Name: "Diner"},
	}
}

func TestSelectGoalPicksUrgentNeedAndNearestPOI(t *testing.T) {
	a := &Agent{ID: "E0", Role: RoleStudent, X: 0.5, Y: 0.5, Needs: NewNeeds(0.1)}
	a.Needs[NeedCaffeine] = 0.8

	goal := SelectGoal(a, testPOIs())
	require.NotNil(t, goal)
	assert.Equal(t, NeedCaffeine, goal.Need)
	assert.Equal(t, "Near Cafe", goal.POI.Name)
}

func TestSelectGoalNilWhenNothingUrgent(t *testing.T) {
	a := &Agent{ID: "E0", Role: RoleStudent, Needs: NewNeeds(0.1)}
	assert.Nil(t, SelectGoal(a, testPOIs()))
}

func TestSelectGoalNilWithoutFeasiblePOI(t *testing.T) {
	a := &Agent{ID: "E0", Role: RoleResident, Needs: NewNeeds(0.1)}
	a.Needs[NeedHealth] = 0.9 // no pharmacy in the registry
	assert.Nil(t, SelectGoal(a, testPOIs()))
}

func TestGoalForCategoryMapsBackToNeed(t *testing.T) {
	a := &Agent{ID: "E0", Role: RoleWorker, X: 0.5, Y: 0.5, Needs: NewNeeds(0.1)}

	goal := GoalForCategory(a, testPOIs(), scenario.CategoryRestaurant)
	require.NotNil(t, goal)
	assert.Equal(t, NeedHunger, goal.Need)
	assert.Equal(t, "Diner", goal.POI.Name)

	assert.Nil(t, GoalForCategory(a, testPOIs(), scenario.CategoryPharmacy))
}

func TestClearRoute(t *testing.T) {
	a := &Agent{
		Path:   []grid.Cell{{Y: 0, X: 0}, {Y: 0, X: 1}},
		Cursor: 1,
		Goal:   &Goal{Need: NeedHunger},
	}
	a.ClearRoute()
	assert.False(t, a.HasPath())
	assert.Zero(t, a.Cursor)
	assert.Nil(t, a.Goal)
}

func TestSpawnRandom(t *testing.T) {
	g := grid.Generate(grid.SmallTestConfig())

	sp := NewSpawner(7)
	pop := sp.SpawnRandom(50, g)
	require.Len(t, pop, 50)

	seen := map[AgentID]bool{}
	for _, a := range pop {
		assert.False(t, seen[a.ID], "duplicate id %s", a.ID)
		seen[a.ID] = true
		assert.True(t, a.Role.Valid())
		assert.True(t, g.Walkable(a.Cell()), "agent %s spawned off the walkable set", a.ID)
		for _, need := range AllNeeds {
			assert.GreaterOrEqual(t, a.Needs[need], 0.0)
			assert.LessOrEqual(t, a.Needs[need], 1.0)
		}
	}
}

func TestSpawnDeterministicBySeed(t *testing.T) {
	g := grid.Generate(grid.SmallTestConfig())

	a := NewSpawner(99).SpawnRandom(20, g)
	b := NewSpawner(99).SpawnRandom(20, g)
	require.Len(t, b, 20)
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.Equal(t, a[i].Role, b[i].Role)
		assert.Equal(t, a[i].Cell(), b[i].Cell())
	}
}

func TestSpawnCluster(t *testing.T) {
	g := grid.Generate(grid.SmallTestConfig())
	center := grid.Cell{Y: g.Height() / 2, X: g.Width() / 2}

	pop := NewSpawner(3).SpawnCluster(30, g, center, 6)
	require.Len(t, pop, 30)
	for _, a := range pop {
		assert.True(t, g.Walkable(a.Cell()))
	}
}
