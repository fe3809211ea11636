// Package sim ties the grid, agents, pathfinder, and reasoning client
// together and advances them each frame. All agent state is owned by a
// single Simulation instance and mutated only on its tick goroutine;
// asynchronous results are marshalled back here before they touch
// anything.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/talgya/society-sim/internal/agents"
	"github.com/talgya/society-sim/internal/brain"
	"github.com/talgya/society-sim/internal/grid"
	"github.com/talgya/society-sim/internal/nav"
	"github.com/talgya/society-sim/internal/scenario"
)

// Event is a notable occurrence surfaced to the API and persistence.
type Event struct {
	Clock       float64 `json:"clock"`
	Description string  `json:"description"`
	Category    string  `json:"category"` // "decision", "meeting", "arrival", "error"
}

// maxEvents bounds the in-memory event ring.
const maxEvents = 1000

// Simulation holds the complete run state and wires systems together.
type Simulation struct {
	Params Params
	Grid   *grid.Grid
	Assets *scenario.Assets

	Agents     []*agents.Agent
	AgentIndex map[agents.AgentID]*agents.Agent
	Eligible   []*agents.Agent

	Nav   *nav.Service
	Brain *brain.Client
	RunID string

	// Clock is accumulated sim time in seconds.
	Clock float64

	// OnTrip receives every closed trip sample.
	OnTrip func(agents.TripSample)

	// OnDecision fires for every applied external decision; OnMeeting
	// for every detected meeting. Both run on the simulation goroutine.
	OnDecision func(agents.AgentID)
	OnMeeting  func(MeetingEvent)

	Events []Event

	meetings *meetingDetector
	orch     *orchestrator

	// Outstanding path requests: request id → agent. Entries whose id no
	// longer matches the agent's PathReqID are stale and dropped.
	pathWaiters map[uint64]*agents.Agent

	needsAccum float64
	rng        *rand.Rand
	ctx        context.Context
}

// New creates a simulation over loaded scenario assets. The pathfinder
// service is started here with its own copy of the grid.
func New(p Params, assets *scenario.Assets, pop []*agents.Agent, brainClient *brain.Client, seed int64) *Simulation {
	index := make(map[agents.AgentID]*agents.Agent, len(pop))
	for _, a := range pop {
		index[a.ID] = a
	}

	// Enroll the first EligibleCap agents as the hero subset.
	var eligible []*agents.Agent
	for _, a := range pop {
		if len(eligible) >= p.EligibleCap {
			break
		}
		a.Eligible = true
		eligible = append(eligible, a)
	}

	// Scenario biases raise need floors so first decisions lean toward
	// the scenario's POIs.
	if len(assets.Biases) > 0 {
		for _, a := range pop {
			a.Needs.ApplyBiases(assets.Biases)
		}
	}

	s := &Simulation{
		Params:      p,
		Grid:        assets.Grid,
		Assets:      assets,
		Agents:      pop,
		AgentIndex:  index,
		Eligible:    eligible,
		Nav:         nav.StartService(assets.Grid),
		Brain:       brainClient,
		meetings:    newMeetingDetector(p.MeetingDistCells, p.MeetingDwellSecs),
		pathWaiters: make(map[uint64]*agents.Agent),
		rng:         rand.New(rand.NewSource(seed)),
		ctx:         context.Background(),
	}
	s.orch = newOrchestrator(s)
	return s
}

// SetContext installs the context decision and chat dispatches run
// under. Call before the first Step.
func (s *Simulation) SetContext(ctx context.Context) {
	s.ctx = ctx
}

// Close stops the pathfinder worker.
func (s *Simulation) Close() {
	s.Nav.Close()
}

// Step advances the simulation by dt sim-seconds. This is the only
// place agent state changes; it never blocks on I/O.
func (s *Simulation) Step(dt float64) {
	s.Clock += dt

	// Apply pathfinder results that arrived since the last frame.
	s.drainPathResults()

	// Periodic needs decay and goal selection.
	s.needsAccum += dt
	for s.needsAccum >= s.Params.NeedsEvalPeriod {
		s.needsAccum -= s.Params.NeedsEvalPeriod
		s.evalNeeds(s.Params.NeedsEvalPeriod)
	}

	// Per-frame movement integration.
	for _, a := range s.Agents {
		s.integrate(a, dt)
	}

	// Proximity detection over the eligible subset.
	events := s.meetings.update(s.Eligible, dt)
	for _, ev := range events {
		s.emitEvent("meeting", fmt.Sprintf("%s and %s crossed paths", ev.A, ev.B))
		if s.OnMeeting != nil {
			s.OnMeeting(ev)
		}
	}

	// Decision orchestration: apply arrived results, handle meetings,
	// dispatch the next batch under QPS pacing.
	s.orch.tick(events)
}

// evalNeeds advances every agent's needs and picks goals for agents
// sitting without a route or an outstanding path request.
func (s *Simulation) evalNeeds(dt float64) {
	for _, a := range s.Agents {
		a.Needs.Advance(a.Role, dt)
		if a.HasPath() || s.pathPending(a) || a.Goal != nil {
			continue
		}
		if goal := agents.SelectGoal(a, s.Assets.POIs); goal != nil {
			s.pursueGoal(a, goal)
		}
	}
}

// pursueGoal sets the goal and issues a superseding path request.
func (s *Simulation) pursueGoal(a *agents.Agent, goal *agents.Goal) {
	start, ok := s.Grid.NearestWalkable(a.Cell(), grid.DefaultSnapRadius)
	if !ok {
		// Stranded agent; leave it idle rather than fail the tick.
		slog.Warn("agent has no walkable cell nearby", "agent", a.ID)
		return
	}
	a.Goal = goal
	id := s.Nav.Submit(start, goal.POI.Pos)
	a.PathReqID = id
	s.pathWaiters[id] = a
}

// pathPending reports whether the agent's latest path request is still
// in flight.
func (s *Simulation) pathPending(a *agents.Agent) bool {
	if a.PathReqID == 0 {
		return false
	}
	waiter, ok := s.pathWaiters[a.PathReqID]
	return ok && waiter == a
}

// drainPathResults applies every pathfinder result queued since the
// last frame, on the simulation goroutine.
func (s *Simulation) drainPathResults() {
	for {
		select {
		case res := <-s.Nav.Results():
			s.applyPathResult(res)
		default:
			return
		}
	}
}

func (s *Simulation) applyPathResult(res nav.Result) {
	a, ok := s.pathWaiters[res.ID]
	if !ok {
		return
	}
	delete(s.pathWaiters, res.ID)

	// A newer request supersedes this one; drop the late result.
	if a.PathReqID != res.ID {
		return
	}
	a.PathReqID = 0

	if res.Err != nil {
		// PathNotFound is non-fatal: clear the goal so the next needs
		// evaluation or external decision re-plans.
		slog.Debug("path request failed", "agent", a.ID, "error", res.Err)
		a.ClearRoute()
		return
	}

	cat := scenario.CategoryOther
	if a.Goal != nil {
		cat = a.Goal.POI.Category
	}
	a.Path = res.Path
	a.Cursor = 0
	a.IdleSecs = 0
	a.Trip = &agents.Trip{StartedAt: s.Clock, Category: cat}
}

// emitEvent appends to the bounded event ring.
func (s *Simulation) emitEvent(category, description string) {
	s.Events = append(s.Events, Event{
		Clock:       s.Clock,
		Description: description,
		Category:    category,
	})
	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}
}

// RecentEvents returns up to n most recent events, newest last.
func (s *Simulation) RecentEvents(n int) []Event {
	if n > len(s.Events) {
		n = len(s.Events)
	}
	out := make([]Event, n)
	copy(out, s.Events[len(s.Events)-n:])
	return out
}
