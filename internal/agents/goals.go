// Goal selection: map the most urgent need to the nearest satisfying POI.
package agents

import "github.com/talgya/society-sim/internal/scenario"

// SelectGoal picks the agent's next destination from the POI registry.
// Among needs at or above the activation threshold the single highest
// wins; among POIs of the satisfying category, the nearest by Manhattan
// distance wins, ties broken by registry order. Returns nil when no
// need is urgent or no feasible POI exists — the caller leaves the
// current goal unchanged and the agent stays idle until the next
// evaluation or an external decision.
func SelectGoal(a *Agent, pois []*scenario.POI) *Goal {
	need, ok := a.Needs.Highest()
	if !ok {
		return nil
	}
	poi := scenario.NearestPOI(pois, need.Category(), a.Cell())
	if poi == nil {
		return nil
	}
	return &Goal{POI: poi, Need: need}
}

// GoalForCategory builds a goal toward the nearest POI of an externally
// decided category. The goal is tagged with the need that category
// satisfies so arrival still decrements something sensible; categories
// no need maps to fall back to leisure.
func GoalForCategory(a *Agent, pois []*scenario.POI, cat scenario.Category) *Goal {
	poi := scenario.NearestPOI(pois, cat, a.Cell())
	if poi == nil {
		return nil
	}
	need := NeedLeisure
	for _, n := range AllNeeds {
		if n.Category() == cat {
			need = n
			break
		}
	}
	return &Goal{POI: poi, Need: need}
}
