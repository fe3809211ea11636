// Movement integration: per-frame interpolation along path waypoints,
// idle detection, and trip closure.
package sim

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/society-sim/internal/agents"
)

// integrate advances one agent by dt sim-seconds. Movement rate is the
// role's base speed scaled by the engine's global speed multiplier
// (already folded into dt). Distance walked accrues on the open trip;
// reaching the final waypoint closes the trip and clears path+goal in
// the same update as the need decrement.
func (s *Simulation) integrate(a *agents.Agent, dt float64) {
	if !a.HasPath() {
		a.IdleSecs += dt
		if a.IdleSecs >= s.Params.IdleReplanSecs {
			a.IdleSecs = 0
			s.replanIdle(a)
		}
		return
	}
	a.IdleSecs = 0

	remaining := a.Role.BaseSpeed() * dt
	for remaining > 0 && a.HasPath() {
		wp := a.Path[a.Cursor]
		wx := float64(wp.X) + 0.5
		wy := float64(wp.Y) + 0.5
		dx, dy := wx-a.X, wy-a.Y
		dist := math.Hypot(dx, dy)

		if dist > 1e-9 {
			a.Heading = math.Atan2(dy, dx)
		}

		if dist > remaining {
			a.X += dx / dist * remaining
			a.Y += dy / dist * remaining
			if a.Trip != nil {
				a.Trip.Distance += remaining
			}
			return
		}

		// Waypoint reached.
		a.X, a.Y = wx, wy
		if a.Trip != nil {
			a.Trip.Distance += dist
		}
		remaining -= dist

		if a.Cursor >= len(a.Path)-1 {
			s.arrive(a)
			return
		}
		a.Cursor++
	}
}

// arrive closes the open trip, decrements the satisfied need, and
// clears path and goal atomically.
func (s *Simulation) arrive(a *agents.Agent) {
	if a.Trip != nil {
		sample := agents.TripSample{
			AgentID:  a.ID,
			Category: a.Trip.Category,
			Duration: s.Clock - a.Trip.StartedAt,
			Distance: a.Trip.Distance,
		}
		a.Trip = nil
		if s.OnTrip != nil {
			s.OnTrip(sample)
		}
		s.emitEvent("arrival", fmt.Sprintf("%s arrived at %s", a.ID, sample.Category))
	}
	if a.Goal != nil {
		a.Needs.Satisfy(a.Goal.Need)
	}
	a.ClearRoute()
}

// replanIdle re-plans an agent that has idled past the threshold:
// needs-driven when something is urgent, otherwise a random POI so the
// world keeps moving.
func (s *Simulation) replanIdle(a *agents.Agent) {
	if s.pathPending(a) {
		return
	}
	if goal := agents.SelectGoal(a, s.Assets.POIs); goal != nil {
		s.pursueGoal(a, goal)
		return
	}
	if len(s.Assets.POIs) == 0 {
		return
	}
	poi := s.Assets.POIs[s.rng.Intn(len(s.Assets.POIs))]
	need := agents.NeedLeisure
	slog.Debug("idle fallback", "agent", a.ID, "poi", poi.Category)
	s.pursueGoal(a, &agents.Goal{POI: poi, Need: need})
}
