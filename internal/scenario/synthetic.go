package scenario

import (
	"fmt"
	"math/rand"

	"github.com/talgya/society-sim/internal/grid"
)

// poiNames seeds plausible venue names per category for generated
// scenarios.
var poiNames = map[Category][]string{
	CategoryGrocery:    {"Corner Market", "Greenleaf Grocers", "Daily Pantry", "Harvest Market"},
	CategoryPharmacy:   {"Central Pharmacy", "Wellness Chemist", "Old Town Apothecary"},
	CategoryCafe:       {"Roast House", "Morningside Cafe", "Bean & Leaf", "The Percolator"},
	CategoryRestaurant: {"Noodle Bar", "The Copper Pot", "Luna Trattoria", "Smokehouse Grill"},
	CategoryTransit:    {"North Station", "Riverside Stop", "Market Street Stop"},
	CategoryEducation:  {"City Library", "Hillside Campus", "Learning Annex"},
	CategoryHealth:     {"Walk-in Clinic", "Community Health Center"},
	CategoryRetail:     {"Arcade Books", "Thread & Needle", "Gadget Works", "Vinyl Cellar"},
	CategoryOther:      {"Fountain Plaza", "Old Mill Hall"},
}

// perCategory is how many POIs Synthetic places for each category.
var perCategory = map[Category]int{
	CategoryGrocery:    4,
	CategoryPharmacy:   3,
	CategoryCafe:       5,
	CategoryRestaurant: 5,
	CategoryTransit:    3,
	CategoryEducation:  3,
	CategoryHealth:     2,
	CategoryRetail:     4,
	CategoryOther:      2,
}

// Synthetic builds a full scenario from a generated street grid with
// POIs scattered over walkable cells. Deterministic for a given seed.
func Synthetic(seed int64) *Assets {
	cfg := grid.DefaultGenConfig()
	cfg.Seed = seed
	g := grid.Generate(cfg)

	rng := rand.New(rand.NewSource(seed + 17))
	cells := g.WalkableCells()

	var pois []*POI
	for _, cat := range Categories {
		names := poiNames[cat]
		for i := 0; i < perCategory[cat]; i++ {
			c := cells[rng.Intn(len(cells))]
			name := names[i%len(names)]
			if i >= len(names) {
				name = fmt.Sprintf("%s %d", name, i/len(names)+1)
			}
			pois = append(pois, &POI{
				Category: cat,
				Pos:      c,
				Name:     name,
			})
		}
	}

	return &Assets{
		ScenarioID: fmt.Sprintf("synthetic-%d", seed),
		Grid:       g,
		Geo:        grid.GeoRef{CellM: grid.CellMeters},
		POIs:       pois,
	}
}
