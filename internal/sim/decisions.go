// Decision orchestration: schedules external-reasoning calls for the
// eligible subset under batch-size and QPS ceilings, and applies the
// results back on the simulation goroutine.
//
// Per-agent state machine: idle (no cooldown entry) → scheduled
// (cooldown timestamp set) → in-flight (removed from cooldown, present
// in the in-flight set) → idle again once the response is applied or
// the batch fails. An agent is never part of two outstanding requests.
package sim

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/society-sim/internal/agents"
	"github.com/talgya/society-sim/internal/brain"
	"github.com/talgya/society-sim/internal/scenario"
)

// decideOutcome carries one batch's result from the dispatch goroutine
// back to the tick loop.
type decideOutcome struct {
	ids       []agents.AgentID
	decisions []brain.Decision
	err       error
}

type chatOutcome struct {
	lines []brain.ChatLine
	err   error
}

type orchestrator struct {
	s *Simulation

	// cooldown holds the sim time at which each scheduled agent becomes
	// ready. Absent entries are ready immediately (unless in flight).
	cooldown map[agents.AgentID]float64

	// inFlight marks agents included in a dispatched, unanswered batch.
	inFlight map[agents.AgentID]bool

	// meetingNext marks agents whose next reschedule was triggered by a
	// meeting and should use the short delay instead of jitter.
	meetingNext map[agents.AgentID]bool

	// Dispatch pacing runs on the wall clock, not sim time: the QPS
	// ceiling protects the real reasoning service, and sim time runs
	// SpeedMul times faster than the wall.
	minInterval  time.Duration
	lastDispatch time.Time

	decideCh chan decideOutcome
	chatCh   chan chatOutcome
}

func newOrchestrator(s *Simulation) *orchestrator {
	var minInterval time.Duration
	if s.Params.MaxQPS > 0 {
		minInterval = time.Duration(float64(time.Second) / s.Params.MaxQPS)
	}
	return &orchestrator{
		s:           s,
		cooldown:    make(map[agents.AgentID]float64),
		inFlight:    make(map[agents.AgentID]bool),
		meetingNext: make(map[agents.AgentID]bool),
		minInterval: minInterval,
		decideCh:    make(chan decideOutcome, 16),
		chatCh:      make(chan chatOutcome, 16),
	}
}

// tick runs one orchestration pass: apply arrived results, react to
// meeting events, then dispatch the next batch if pacing allows.
func (o *orchestrator) tick(meetings []MeetingEvent) {
	o.drainResults()
	o.handleMeetings(meetings)
	o.dispatch()
}

func (o *orchestrator) drainResults() {
	for {
		select {
		case out := <-o.decideCh:
			o.applyDecideOutcome(out)
		case out := <-o.chatCh:
			o.applyChatOutcome(out)
		default:
			return
		}
	}
}

func (o *orchestrator) applyDecideOutcome(out decideOutcome) {
	now := o.s.Clock

	if out.err != nil {
		// Batch abandoned: the agents leave the in-flight set with no
		// cooldown entry, so the next scheduling pass retries them.
		slog.Warn("decision batch failed", "agents", len(out.ids), "error", out.err)
		o.s.emitEvent("error", fmt.Sprintf("decision batch of %d failed", len(out.ids)))
		for _, id := range out.ids {
			delete(o.inFlight, id)
			delete(o.meetingNext, id)
		}
		return
	}

	byID := make(map[agents.AgentID]brain.Decision, len(out.decisions))
	for _, d := range out.decisions {
		byID[agents.AgentID(d.ID)] = d
	}

	for _, id := range out.ids {
		delete(o.inFlight, id)

		if d, ok := byID[id]; ok {
			o.applyDecision(id, d)
		}

		// Reschedule whether or not the service answered for this agent.
		delay := o.s.Params.PeriodicJitterMinSecs +
			o.s.rng.Float64()*(o.s.Params.PeriodicJitterMaxSecs-o.s.Params.PeriodicJitterMinSecs)
		if o.meetingNext[id] {
			delay = o.s.Params.MeetingRescheduleSecs
			delete(o.meetingNext, id)
		}
		o.cooldown[id] = now + delay
	}

	// Decisions for ids we never dispatched are dropped outright.
	for _, d := range out.decisions {
		if id := agents.AgentID(d.ID); o.s.AgentIndex[id] == nil {
			slog.Debug("decision for unknown agent", "id", d.ID)
		}
	}
}

// applyDecision updates one agent from its decision. A malformed
// decision (invalid category) skips this agent without affecting the
// rest of the batch; an unknown id is a no-op.
func (o *orchestrator) applyDecision(id agents.AgentID, d brain.Decision) {
	a, ok := o.s.AgentIndex[id]
	if !ok {
		return
	}

	cat := scenario.Category(d.NextIntent.Category)
	if !cat.Valid() {
		slog.Debug("malformed decision skipped", "agent", id, "category", d.NextIntent.Category)
		return
	}

	a.Intent = cat
	a.Thought = d.Thought

	if goal := agents.GoalForCategory(a, o.s.Assets.POIs, cat); goal != nil {
		o.s.pursueGoal(a, goal)
	}
	o.s.emitEvent("decision", fmt.Sprintf("%s heads for %s", id, cat))
	if o.s.OnDecision != nil {
		o.s.OnDecision(id)
	}
}

func (o *orchestrator) applyChatOutcome(out chatOutcome) {
	if out.err != nil {
		slog.Warn("chat request failed", "error", out.err)
		return
	}
	// Chat lines are rendered only; they never alter needs or goals.
	for _, line := range out.lines {
		if a, ok := o.s.AgentIndex[agents.AgentID(line.AID)]; ok {
			a.ChatLine = line.ALine
		}
		if b, ok := o.s.AgentIndex[agents.AgentID(line.BID)]; ok {
			b.ChatLine = line.BLine
		}
	}
}

// handleMeetings immediately reschedules both participants of each
// meeting and issues the side-channel chat exchange.
func (o *orchestrator) handleMeetings(meetings []MeetingEvent) {
	if len(meetings) == 0 {
		return
	}
	now := o.s.Clock

	var pairs []brain.ChatPair
	for _, ev := range meetings {
		for _, id := range [2]agents.AgentID{ev.A, ev.B} {
			if o.inFlight[id] {
				continue
			}
			o.cooldown[id] = now
			o.meetingNext[id] = true
		}
		pairs = append(pairs, brain.ChatPair{AID: string(ev.A), BID: string(ev.B)})
	}

	if !o.s.Brain.Enabled() || len(pairs) == 0 {
		return
	}
	ctx := o.s.ctx
	runID := o.s.RunID
	chatCtx := map[string]any{"topic": "a nearby spot", "time_of_day": o.s.timeOfDay()}
	go func() {
		lines, err := o.s.Brain.Chat(ctx, runID, pairs, chatCtx)
		o.chatCh <- chatOutcome{lines: lines, err: err}
	}()
}

// dispatch collects ready agents and sends at most one batch, delayed
// (never dropped) when the minimum inter-dispatch interval of wall
// time has not elapsed since the previous batch. Readiness is sim
// time; pacing is wall time.
func (o *orchestrator) dispatch() {
	if !o.s.Brain.Enabled() {
		return
	}
	now := o.s.Clock

	var ready []*agents.Agent
	for _, a := range o.s.Eligible {
		if o.inFlight[a.ID] {
			continue
		}
		if cd, ok := o.cooldown[a.ID]; ok && cd > now {
			continue
		}
		ready = append(ready, a)
	}
	if len(ready) == 0 {
		return
	}
	if !o.lastDispatch.IsZero() && time.Since(o.lastDispatch) < o.minInterval {
		return
	}

	if len(ready) > o.s.Params.BatchSize {
		ready = ready[:o.s.Params.BatchSize]
	}
	o.lastDispatch = time.Now()

	ids := make([]agents.AgentID, 0, len(ready))
	snaps := make([]brain.AgentSnapshot, 0, len(ready))
	for _, a := range ready {
		delete(o.cooldown, a.ID)
		o.inFlight[a.ID] = true
		ids = append(ids, a.ID)

		needs := make(map[string]float64, len(a.Needs))
		for k, v := range a.Needs {
			needs[string(k)] = v
		}
		snaps = append(snaps, brain.AgentSnapshot{
			ID:        string(a.ID),
			Role:      string(a.Role),
			Pos:       [2]float64{a.X, a.Y},
			Needs:     needs,
			TimeOfDay: o.s.timeOfDay(),
		})
	}

	ctx := o.s.ctx
	runID := o.s.RunID
	decideCtx := map[string]any{
		"scenario_id": o.s.Assets.ScenarioID,
		"time_of_day": o.s.timeOfDay(),
	}
	if len(o.s.Assets.Biases) > 0 {
		biases := make(map[string]float64, len(o.s.Assets.Biases))
		for k, v := range o.s.Assets.Biases {
			biases[string(k)] = v
		}
		decideCtx["biases"] = biases
	}

	go func() {
		decisions, err := o.s.Brain.Decide(ctx, runID, snaps, decideCtx)
		o.decideCh <- decideOutcome{ids: ids, decisions: decisions, err: err}
	}()
}

// timeOfDay maps run progress onto a coarse day phase for prompts.
func (s *Simulation) timeOfDay() string {
	if s.Params.DurationSecs <= 0 {
		return "daytime"
	}
	switch frac := s.Clock / s.Params.DurationSecs; {
	case frac < 0.25:
		return "morning"
	case frac < 0.5:
		return "midday"
	case frac < 0.75:
		return "afternoon"
	default:
		return "evening"
	}
}
