// Package agents provides the per-agent state model: roles, the decaying
// needs vector, the active path/goal, and trip telemetry.
package agents

import (
	"github.com/talgya/society-sim/internal/grid"
	"github.com/talgya/society-sim/internal/scenario"
)

// AgentID uniquely identifies an agent within a run.
type AgentID string

// Role determines an agent's need-decay profile, walking speed, and
// population sampling weight.
type Role string

const (
	RoleStudent  Role = "student"
	RoleResident Role = "resident"
	RoleWorker   Role = "worker"
)

// Roles lists all valid roles in sampling order.
var Roles = []Role{RoleStudent, RoleResident, RoleWorker}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Goal is a destination under pursuit: the POI and the need it satisfies.
type Goal struct {
	POI  *scenario.POI
	Need Need
}

// Trip tracks one traversal from path assignment to arrival.
// Opened when a path is assigned, closed into a TripSample on arrival.
type Trip struct {
	StartedAt float64 // Sim-time seconds at departure
	Category  scenario.Category
	Distance  float64 // Accumulated cells walked
}

// TripSample is the immutable telemetry record emitted when a trip closes.
type TripSample struct {
	AgentID  AgentID           `json:"agent_id"`
	Category scenario.Category `json:"category"`
	Duration float64           `json:"duration_s"`
	Distance float64           `json:"distance_cells"`
}

// Agent is one simulated pedestrian. Created at run start, mutated every
// tick by the simulation goroutine only, discarded at run end.
type Agent struct {
	ID   AgentID
	Role Role

	// Continuous position in cell units and facing in radians.
	X, Y    float64
	Heading float64

	// Needs vector, all values clamped to [0,1]; higher is more urgent.
	Needs Needs

	// Active route. Cursor indexes the waypoint the agent is walking
	// toward and never exceeds len(Path)-1.
	Path   []grid.Cell
	Cursor int

	Goal *Goal
	Trip *Trip

	// Eligible marks enrollment in external reasoning and proximity
	// detection (a bounded subset of all agents).
	Eligible bool

	// PathReqID is the most recent path request issued for this agent.
	// Late results carrying any other id are discarded.
	PathReqID uint64

	// Seconds accumulated with no active path; crossing the idle
	// threshold triggers re-planning.
	IdleSecs float64

	// Display-only reasoning state. Never feeds back into needs or goals.
	Intent   scenario.Category
	Thought  string
	ChatLine string
}

// Cell returns the grid cell the agent currently occupies.
func (a *Agent) Cell() grid.Cell {
	return grid.Cell{Y: int(a.Y), X: int(a.X)}
}

// HasPath reports whether the agent is walking a route.
func (a *Agent) HasPath() bool {
	return len(a.Path) > 0
}

// ClearRoute drops path, cursor, and goal together. Arrival handling
// relies on this happening atomically with the need decrement.
func (a *Agent) ClearRoute() {
	a.Path = nil
	a.Cursor = 0
	a.Goal = nil
}

// BaseSpeed returns the role's walking speed in cells per second.
func (r Role) BaseSpeed() float64 {
	switch r {
	case RoleStudent:
		return 1.1
	case RoleWorker:
		return 1.0
	default:
		return 0.9
	}
}

// SamplingWeight returns the role's share when spawning a population.
func (r Role) SamplingWeight() float64 {
	switch r {
	case RoleStudent:
		return 0.4
	case RoleWorker:
		return 0.35
	default:
		return 0.25
	}
}
