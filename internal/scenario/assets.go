// Asset loading: navgraph.json, pois.json, and scenario.json from a
// per-scenario directory. POI collections are JSON-Schema validated
// before anything touches them, so malformed authoring output fails at
// load time rather than mid-run.
package scenario

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/talgya/society-sim/internal/grid"
)

// Assets is one scenario's complete read-only input set.
type Assets struct {
	ScenarioID string
	Grid       *grid.Grid
	Geo        grid.GeoRef
	POIs       []*POI
	// Biases raise the matching need floor when the scenario activates,
	// skewing early decisions toward the scenario's POIs. Values in [0,1].
	Biases map[Category]float64
}

// navGraphFile mirrors the exported navgraph format: dimensions, geo
// anchor, and base64-encoded row-major walkable/cost bytes.
type navGraphFile struct {
	H        int     `json:"h"`
	W        int     `json:"w"`
	Walkable string  `json:"walkable"`
	Cost     string  `json:"cost"`
	OriginX  float64 `json:"origin_x"`
	OriginY  float64 `json:"origin_y"`
	CellM    float64 `json:"cell_m"`
}

// poiFile is one entry of pois.json. Snapped is filled by the asset
// pipeline when it already resolved a walkable cell; otherwise the
// loader snaps Y/X itself.
type poiFile struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	Y    int    `json:"iy"`
	X    int    `json:"ix"`

	Snapped *struct {
		Y int `json:"iy"`
		X int `json:"ix"`
	} `json:"snapped,omitempty"`
	Added bool `json:"added,omitempty"`
}

type scenarioFile struct {
	ID    string             `json:"id"`
	Title string             `json:"title"`
	Bias  map[string]float64 `json:"bias,omitempty"`
}

const poisSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "array",
	"items": {
		"type": "object",
		"required": ["type", "iy", "ix"],
		"properties": {
			"type": {"enum": ["grocery", "pharmacy", "cafe", "restaurant", "transit", "education", "health", "retail", "other"]},
			"name": {"type": ["string", "null"]},
			"iy": {"type": "integer", "minimum": 0},
			"ix": {"type": "integer", "minimum": 0},
			"snapped": {
				"type": ["object", "null"],
				"required": ["iy", "ix"],
				"properties": {
					"iy": {"type": "integer", "minimum": 0},
					"ix": {"type": "integer", "minimum": 0}
				}
			},
			"added": {"type": "boolean"}
		}
	}
}`

var compiledPOISchema = jsonschema.MustCompileString("pois.schema.json", poisSchema)

// Load reads the asset set for one scenario from dir. Expects
// navgraph.json and pois.json, plus an optional scenario.json carrying
// the id and need biases; the directory name doubles as the scenario id
// when scenario.json is absent.
func Load(dir string) (*Assets, error) {
	g, ref, err := loadNavGraph(filepath.Join(dir, "navgraph.json"))
	if err != nil {
		return nil, fmt.Errorf("load navgraph: %w", err)
	}

	pois, err := loadPOIs(filepath.Join(dir, "pois.json"), g)
	if err != nil {
		return nil, fmt.Errorf("load pois: %w", err)
	}

	a := &Assets{
		ScenarioID: filepath.Base(dir),
		Grid:       g,
		Geo:        ref,
		POIs:       pois,
		Biases:     map[Category]float64{},
	}

	scPath := filepath.Join(dir, "scenario.json")
	if raw, err := os.ReadFile(scPath); err == nil {
		var sc scenarioFile
		if err := json.Unmarshal(raw, &sc); err != nil {
			return nil, fmt.Errorf("parse scenario.json: %w", err)
		}
		if sc.ID != "" {
			a.ScenarioID = sc.ID
		}
		for k, v := range sc.Bias {
			cat := Category(k)
			if !cat.Valid() {
				return nil, fmt.Errorf("scenario.json: unknown bias category %q", k)
			}
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			a.Biases[cat] = v
		}
	}

	slog.Info("scenario assets loaded",
		"scenario", a.ScenarioID,
		"grid", fmt.Sprintf("%dx%d", g.Height(), g.Width()),
		"pois", len(pois),
		"biases", len(a.Biases),
	)
	return a, nil
}

func loadNavGraph(path string) (*grid.Grid, grid.GeoRef, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, grid.GeoRef{}, err
	}
	var nf navGraphFile
	if err := json.Unmarshal(raw, &nf); err != nil {
		return nil, grid.GeoRef{}, fmt.Errorf("parse: %w", err)
	}
	if nf.H <= 0 || nf.W <= 0 {
		return nil, grid.GeoRef{}, fmt.Errorf("bad dimensions %dx%d", nf.H, nf.W)
	}
	walkable, err := base64.StdEncoding.DecodeString(nf.Walkable)
	if err != nil {
		return nil, grid.GeoRef{}, fmt.Errorf("decode walkable: %w", err)
	}
	cost, err := base64.StdEncoding.DecodeString(nf.Cost)
	if err != nil {
		return nil, grid.GeoRef{}, fmt.Errorf("decode cost: %w", err)
	}
	if len(walkable) != nf.H*nf.W || len(cost) != nf.H*nf.W {
		return nil, grid.GeoRef{}, fmt.Errorf("grid data length mismatch: want %d, got %d/%d",
			nf.H*nf.W, len(walkable), len(cost))
	}
	ref := grid.GeoRef{OriginX: nf.OriginX, OriginY: nf.OriginY, CellM: nf.CellM}
	if ref.CellM <= 0 {
		ref.CellM = grid.CellMeters
	}
	return grid.New(nf.H, nf.W, walkable, cost), ref, nil
}

func loadPOIs(path string, g *grid.Grid) ([]*POI, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := compiledPOISchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	var entries []poiFile
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	pois := make([]*POI, 0, len(entries))
	dropped := 0
	for _, e := range entries {
		pos := grid.Cell{Y: e.Y, X: e.X}
		if e.Snapped != nil {
			pos = grid.Cell{Y: e.Snapped.Y, X: e.Snapped.X}
		}
		// Raw asset positions may sit inside buildings; snap them here.
		snapped, ok := g.NearestWalkable(pos, grid.DefaultSnapRadius)
		if !ok {
			dropped++
			continue
		}
		pois = append(pois, &POI{
			Category: Category(e.Type),
			Pos:      snapped,
			Name:     e.Name,
			Added:    e.Added,
		})
	}
	if dropped > 0 {
		slog.Warn("dropped unsnappable POIs", "count", dropped)
	}
	return pois, nil
}
