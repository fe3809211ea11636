package sim

// Params holds every tuning knob of the simulation core. Loaded from
// config in cmd; tests construct them directly.
type Params struct {
	// TickRate is the frame clock frequency in Hz.
	TickRate float64

	// SpeedMul scales sim time relative to wall time.
	SpeedMul float64

	// DurationSecs is the run length in sim seconds (0 = unbounded).
	DurationSecs float64

	// NeedsEvalPeriod is the needs decay/goal selection interval in sim
	// seconds; needs are deliberately not evaluated every frame.
	NeedsEvalPeriod float64

	// IdleReplanSecs is how long an agent may sit without a path before
	// re-planning triggers.
	IdleReplanSecs float64

	// Meeting detection: squared-distance compare against
	// MeetingDistCells², dwell accumulation against MeetingDwellSecs.
	MeetingDistCells float64
	MeetingDwellSecs float64

	// Decision orchestration.
	BatchSize             int
	MaxQPS                float64
	PeriodicJitterMinSecs float64
	PeriodicJitterMaxSecs float64
	MeetingRescheduleSecs float64

	// EligibleCap bounds the hero subset enrolled in external reasoning
	// and proximity detection; the pairwise meeting check is quadratic
	// in this number.
	EligibleCap int
}

// DefaultParams returns the tuning used by headless experiment runs.
func DefaultParams() Params {
	return Params{
		TickRate:              20,
		SpeedMul:              1.0,
		DurationSecs:          180,
		NeedsEvalPeriod:       1.0,
		IdleReplanSecs:        4.0,
		MeetingDistCells:      3.0,
		MeetingDwellSecs:      2.5,
		BatchSize:             32,
		MaxQPS:                4,
		PeriodicJitterMinSecs: 6,
		PeriodicJitterMaxSecs: 12,
		MeetingRescheduleSecs: 0.5,
		EligibleCap:           12,
	}
}
