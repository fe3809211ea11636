// Synthetic navigable map generation using simplex noise.
// Produces a deterministic city-like walkable grid for headless runs and
// tests that do not ship OSM-derived navigation assets.
package grid

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds synthetic map generation parameters.
type GenConfig struct {
	H, W         int     // Grid dimensions in cells
	Seed         int64   // Random seed
	BlockPeriod  int     // Street spacing in cells
	BuildingFill float64 // Noise threshold above which a block cell is a building
}

// DefaultGenConfig returns a walkable downtown-scaled map (~1km at 1.5m cells).
func DefaultGenConfig() GenConfig {
	return GenConfig{
		H:            660,
		W:            660,
		Seed:         42,
		BlockPeriod:  24,
		BuildingFill: 0.55,
	}
}

// SmallTestConfig returns a tiny map for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		H:            64,
		W:            64,
		Seed:         42,
		BlockPeriod:  8,
		BuildingFill: 0.6,
	}
}

// Generate creates a synthetic walkable grid: a street lattice every
// BlockPeriod cells guarantees connectivity, and simplex noise fills the
// blocks between with buildings (non-walkable) and plazas (walkable,
// slightly costlier). Deterministic for a given config.
func Generate(cfg GenConfig) *Grid {
	noise := opensimplex.NewNormalized(cfg.Seed)

	walkable := make([]uint8, cfg.H*cfg.W)
	cost := make([]uint8, cfg.H*cfg.W)

	for y := 0; y < cfg.H; y++ {
		for x := 0; x < cfg.W; x++ {
			i := y*cfg.W + x

			// Streets: two-cell-wide lanes on the lattice.
			onStreet := y%cfg.BlockPeriod <= 1 || x%cfg.BlockPeriod <= 1
			if onStreet {
				walkable[i] = 1
				cost[i] = 1
				continue
			}

			n := noise.Eval2(float64(x)*0.05, float64(y)*0.05)
			if n > cfg.BuildingFill {
				// Building interior: not walkable.
				walkable[i] = 0
				cost[i] = 0
			} else {
				// Courtyard/plaza: walkable but slower than streets.
				walkable[i] = 1
				cost[i] = 2
			}
		}
	}

	return New(cfg.H, cfg.W, walkable, cost)
}
