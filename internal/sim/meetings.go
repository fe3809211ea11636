// Proximity detection: pairwise dwell-time accumulation over the
// eligible subset, producing discrete meeting events.
package sim

import "github.com/talgya/society-sim/internal/agents"

// MeetingEvent fires when a pair's accumulated time together crosses
// the dwell threshold.
type MeetingEvent struct {
	A, B agents.AgentID
}

// pairKey is an unordered agent pair, normalized so A < B.
type pairKey struct {
	A, B agents.AgentID
}

func makePairKey(a, b agents.AgentID) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{A: a, B: b}
}

// meetingDetector keeps one time-together accumulator per pair. The
// check is quadratic in the eligible count, which is capped for that
// reason.
type meetingDetector struct {
	distSq    float64
	dwellSecs float64
	accum     map[pairKey]float64
}

func newMeetingDetector(distCells, dwellSecs float64) *meetingDetector {
	return &meetingDetector{
		distSq:    distCells * distCells,
		dwellSecs: dwellSecs,
		accum:     make(map[pairKey]float64),
	}
}

// update advances every pair's accumulator by dt while within range and
// resets it otherwise. Crossing the dwell threshold emits one event and
// zeroes the accumulator, so a sustained encounter produces one event
// per threshold period rather than one per frame.
func (m *meetingDetector) update(eligible []*agents.Agent, dt float64) []MeetingEvent {
	var events []MeetingEvent
	for i := 0; i < len(eligible); i++ {
		for j := i + 1; j < len(eligible); j++ {
			a, b := eligible[i], eligible[j]
			key := makePairKey(a.ID, b.ID)

			dx := a.X - b.X
			dy := a.Y - b.Y
			if dx*dx+dy*dy >= m.distSq {
				delete(m.accum, key)
				continue
			}

			t := m.accum[key] + dt
			if t >= m.dwellSecs {
				events = append(events, MeetingEvent{A: key.A, B: key.B})
				t = 0
			}
			m.accum[key] = t
		}
	}
	return events
}
