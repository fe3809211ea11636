// Package scenario loads read-only navigation and POI assets keyed by
// scenario identifier. Assets are produced by an external scenario
// editor; the simulation treats them as immutable input and re-reads
// them wholesale on scenario switch.
package scenario

import "github.com/talgya/society-sim/internal/grid"

// Category classifies a point of interest.
type Category string

const (
	CategoryGrocery    Category = "grocery"
	CategoryPharmacy   Category = "pharmacy"
	CategoryCafe       Category = "cafe"
	CategoryRestaurant Category = "restaurant"
	CategoryTransit    Category = "transit"
	CategoryEducation  Category = "education"
	CategoryHealth     Category = "health"
	CategoryRetail     Category = "retail"
	CategoryOther      Category = "other"
)

// Categories lists all valid POI categories.
var Categories = []Category{
	CategoryGrocery, CategoryPharmacy, CategoryCafe, CategoryRestaurant,
	CategoryTransit, CategoryEducation, CategoryHealth, CategoryRetail,
	CategoryOther,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// POI is a categorized, positioned destination. Pos is always walkable:
// the loader snaps raw positions to the nearest walkable cell.
type POI struct {
	Category Category  `json:"type"`
	Pos      grid.Cell `json:"pos"`
	Name     string    `json:"name,omitempty"`
	Added    bool      `json:"added"` // Scenario-injected rather than baseline
}

// NearestPOI returns the POI of the given category closest to from by
// Manhattan distance, breaking ties by registry order. Returns nil when
// the registry holds no POI of that category.
func NearestPOI(pois []*POI, cat Category, from grid.Cell) *POI {
	var best *POI
	bestDist := 0
	for _, p := range pois {
		if p.Category != cat {
			continue
		}
		d := grid.Manhattan(from, p.Pos)
		if best == nil || d < bestDist {
			best = p
			bestDist = d
		}
	}
	return best
}
