// Needs engine: each need rises toward urgency at a role-weighted rate
// and is knocked back down by visiting a satisfying POI.
package agents

import "github.com/talgya/society-sim/internal/scenario"

// Need is one scalar urgency channel.
type Need string

const (
	NeedHunger    Need = "hunger"
	NeedCaffeine  Need = "caffeine"
	NeedGroceries Need = "groceries"
	NeedHealth    Need = "health"
	NeedEducation Need = "education"
	NeedLeisure   Need = "leisure"
	NeedSocial    Need = "social"
)

// AllNeeds fixes the evaluation order so equal-urgency ties resolve
// deterministically.
var AllNeeds = []Need{
	NeedHunger, NeedCaffeine, NeedGroceries, NeedHealth,
	NeedEducation, NeedLeisure, NeedSocial,
}

// Category returns the POI category that satisfies the need.
func (n Need) Category() scenario.Category {
	switch n {
	case NeedHunger:
		return scenario.CategoryRestaurant
	case NeedCaffeine:
		return scenario.CategoryCafe
	case NeedGroceries:
		return scenario.CategoryGrocery
	case NeedHealth:
		return scenario.CategoryPharmacy
	case NeedEducation:
		return scenario.CategoryEducation
	case NeedLeisure:
		return scenario.CategoryRetail
	case NeedSocial:
		return scenario.CategoryCafe
	default:
		return scenario.CategoryRetail
	}
}

// Tuning constants for the needs engine.
const (
	// ActivationThreshold is the minimum urgency before a need can drive
	// goal selection.
	ActivationThreshold = 0.55

	// SatisfyAmount is subtracted from a need on arrival at a satisfying
	// POI, clamped at zero.
	SatisfyAmount = 0.6
)

// baseRate is each need's urgency growth per second at role weight 1.0.
var baseRate = map[Need]float64{
	NeedHunger:    0.010,
	NeedCaffeine:  0.012,
	NeedGroceries: 0.006,
	NeedHealth:    0.003,
	NeedEducation: 0.005,
	NeedLeisure:   0.008,
	NeedSocial:    0.009,
}

// roleWeight scales a need's growth for a role. Needs absent from a
// role's profile grow at weight 1.0.
var roleWeight = map[Role]map[Need]float64{
	RoleStudent: {
		NeedCaffeine:  1.5,
		NeedEducation: 1.6,
		NeedSocial:    1.2,
		NeedGroceries: 0.6,
	},
	RoleWorker: {
		NeedCaffeine: 1.4,
		NeedHunger:   1.3,
		NeedLeisure:  0.8,
	},
	RoleResident: {
		NeedGroceries: 1.5,
		NeedLeisure:   1.3,
		NeedHealth:    1.2,
		NeedEducation: 0.4,
	},
}

// Needs maps each need to its urgency in [0,1].
type Needs map[Need]float64

// NewNeeds returns a needs vector with every need at the given level.
func NewNeeds(level float64) Needs {
	n := make(Needs, len(AllNeeds))
	for _, need := range AllNeeds {
		n[need] = clamp01(level)
	}
	return n
}

// Advance grows every need by its role-weighted rate over dt seconds.
// Called on the periodic needs tick, not every frame.
func (n Needs) Advance(role Role, dt float64) {
	weights := roleWeight[role]
	for _, need := range AllNeeds {
		w := 1.0
		if v, ok := weights[need]; ok {
			w = v
		}
		n[need] = clamp01(n[need] + baseRate[need]*w*dt)
	}
}

// Satisfy decrements the need by SatisfyAmount, clamped at zero.
func (n Needs) Satisfy(need Need) {
	n[need] = clamp01(n[need] - SatisfyAmount)
}

// Highest returns the most urgent need at or above the activation
// threshold. Ties break by AllNeeds order. ok is false when nothing is
// urgent enough.
func (n Needs) Highest() (Need, bool) {
	var best Need
	bestVal := -1.0
	for _, need := range AllNeeds {
		if v := n[need]; v >= ActivationThreshold && v > bestVal {
			best = need
			bestVal = v
		}
	}
	return best, bestVal >= 0
}

// ApplyBiases raises the floor of each need whose satisfying category
// carries a scenario bias, skewing early decisions toward scenario POIs.
func (n Needs) ApplyBiases(biases map[scenario.Category]float64) {
	for _, need := range AllNeeds {
		if w, ok := biases[need.Category()]; ok && w > n[need] {
			n[need] = clamp01(w)
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
