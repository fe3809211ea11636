package sim

import (
	"context"
	"log/slog"
	"time"
)

// Engine drives a Simulation at a fixed tick rate on a single
// goroutine. All agent state mutation happens inside Step, so no
// locking is needed around the Simulation itself.
type Engine struct {
	Sim *Simulation

	// OnTick, when set, is called after every step with the completed
	// tick index. It runs on the engine goroutine.
	OnTick func(tick uint64)
}

func NewEngine(s *Simulation) *Engine {
	return &Engine{Sim: s}
}

// Run steps the simulation until the configured duration elapses or
// the context is cancelled, whichever comes first. It returns the
// number of ticks executed.
func (e *Engine) Run(ctx context.Context) uint64 {
	e.Sim.SetContext(ctx)

	rate := e.Sim.Params.TickRate
	if rate <= 0 {
		rate = 20
	}
	interval := time.Duration(float64(time.Second) / rate)
	dt := (1.0 / rate) * e.Sim.Params.SpeedMul

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("engine started",
		"tick_rate", rate,
		"speed_mul", e.Sim.Params.SpeedMul,
		"duration_secs", e.Sim.Params.DurationSecs,
	)

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopped", "reason", "cancelled", "ticks", tick)
			return tick
		case <-ticker.C:
			e.Sim.Step(dt)
			tick++
			if e.OnTick != nil {
				e.OnTick(tick)
			}
			if e.Sim.Params.DurationSecs > 0 && e.Sim.Clock >= e.Sim.Params.DurationSecs {
				slog.Info("engine stopped", "reason", "duration reached", "ticks", tick)
				return tick
			}
		}
	}
}
