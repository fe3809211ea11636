// Package metrics aggregates run statistics into fixed-width time
// bins for the end-of-run report and the reasoning service upload.
package metrics

import (
	"sync"

	"github.com/talgya/society-sim/internal/agents"
)

// Bin is one aggregation window of the run timeline.
type Bin struct {
	StartSecs   float64 `json:"start_secs"`
	Decisions   int     `json:"decisions"`
	Arrivals    int     `json:"arrivals"`
	Meetings    int     `json:"meetings"`
	WalkedCells float64 `json:"walked_cells"`
	TravelSecs  float64 `json:"travel_secs"`
}

// Summary is the flattened report shape posted at run end.
type Summary struct {
	RunID          string         `json:"run_id"`
	DurationSecs   float64        `json:"duration_secs"`
	Agents         int            `json:"agents"`
	Decisions      int            `json:"decisions"`
	Arrivals       int            `json:"arrivals"`
	Meetings       int            `json:"meetings"`
	WalkedCells    float64        `json:"walked_cells"`
	MeanTripSecs   float64        `json:"mean_trip_secs"`
	TripsByCat     map[string]int `json:"trips_by_category"`
	Bins           []Bin          `json:"bins"`
}

// Aggregator accumulates run events into bins. Recording methods are
// safe to call from the simulation goroutine while the HTTP surface
// reads snapshots.
type Aggregator struct {
	mu        sync.Mutex
	binSecs   float64
	bins      []Bin
	trips     map[string]int
	tripCount int
}

func NewAggregator(binSecs float64) *Aggregator {
	if binSecs <= 0 {
		binSecs = 10
	}
	return &Aggregator{
		binSecs: binSecs,
		trips:   make(map[string]int),
	}
}

// bin returns the bin covering the given sim time, growing the
// timeline as needed.
func (ag *Aggregator) bin(clock float64) *Bin {
	idx := int(clock / ag.binSecs)
	if idx < 0 {
		idx = 0
	}
	for len(ag.bins) <= idx {
		ag.bins = append(ag.bins, Bin{StartSecs: float64(len(ag.bins)) * ag.binSecs})
	}
	return &ag.bins[idx]
}

func (ag *Aggregator) RecordDecision(clock float64) {
	ag.mu.Lock()
	defer ag.mu.Unlock()
	ag.bin(clock).Decisions++
}

func (ag *Aggregator) RecordMeeting(clock float64) {
	ag.mu.Lock()
	defer ag.mu.Unlock()
	ag.bin(clock).Meetings++
}

// RecordTrip folds a completed trip into its arrival bin.
func (ag *Aggregator) RecordTrip(clock float64, t agents.TripSample) {
	ag.mu.Lock()
	defer ag.mu.Unlock()
	b := ag.bin(clock)
	b.Arrivals++
	b.WalkedCells += t.Distance
	b.TravelSecs += t.Duration
	ag.trips[string(t.Category)]++
	ag.tripCount++
}

// Snapshot returns a copy of the current bins.
func (ag *Aggregator) Snapshot() []Bin {
	ag.mu.Lock()
	defer ag.mu.Unlock()
	out := make([]Bin, len(ag.bins))
	copy(out, ag.bins)
	return out
}

// Summarize rolls the bins up into the final report.
func (ag *Aggregator) Summarize(runID string, durationSecs float64, agentCount int) Summary {
	ag.mu.Lock()
	defer ag.mu.Unlock()

	s := Summary{
		RunID:        runID,
		DurationSecs: durationSecs,
		Agents:       agentCount,
		TripsByCat:   make(map[string]int, len(ag.trips)),
		Bins:         make([]Bin, len(ag.bins)),
	}
	copy(s.Bins, ag.bins)
	for k, v := range ag.trips {
		s.TripsByCat[k] = v
	}

	var travel float64
	for _, b := range ag.bins {
		s.Decisions += b.Decisions
		s.Arrivals += b.Arrivals
		s.Meetings += b.Meetings
		s.WalkedCells += b.WalkedCells
		travel += b.TravelSecs
	}
	if ag.tripCount > 0 {
		s.MeanTripSecs = travel / float64(ag.tripCount)
	}
	return s
}
