package scenario

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/society-sim/internal/grid"
)

// writeScenario lays down a 4×4 scenario dir: the left half walkable,
// the right half blocked.
func writeScenario(t *testing.T, pois string, extra map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	walkable := make([]byte, 16)
	cost := make([]byte, 16)
	for y := 0; y < 4; y++ {
		for x := 0; x < 2; x++ {
			walkable[y*4+x] = 1
			cost[y*4+x] = 1
		}
	}
	nav, err := json.Marshal(map[string]any{
		"h":        4,
		"w":        4,
		"walkable": base64.StdEncoding.EncodeToString(walkable),
		"cost":     base64.StdEncoding.EncodeToString(cost),
		"cell_m":   1.5,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "navgraph.json"), nav, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pois.json"), []byte(pois), 0644))
	for name, body := range extra {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}
	return dir
}

func TestLoadSnapsPOIs(t *testing.T) {
	// The cafe sits on the blocked half and must snap left.
	dir := writeScenario(t, `[
		{"type": "cafe", "name": "Corner", "iy": 1, "ix": 3},
		{"type": "grocery", "iy": 0, "ix": 0}
	]`, nil)

	a, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, a.POIs, 2)

	cafe := a.POIs[0]
	assert.Equal(t, CategoryCafe, cafe.Category)
	assert.True(t, a.Grid.Walkable(cafe.Pos), "POI was not snapped to a walkable cell")

	assert.Equal(t, grid.Cell{Y: 0, X: 0}, a.POIs[1].Pos)
	assert.Equal(t, filepath.Base(dir), a.ScenarioID)
}

func TestLoadRejectsBadPOIType(t *testing.T) {
	dir := writeScenario(t, `[{"type": "castle", "iy": 0, "ix": 0}]`, nil)
	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestLoadRejectsMissingFields(t *testing.T) {
	dir := writeScenario(t, `[{"type": "cafe"}]`, nil)
	_, err := Load(dir)
	require.Error(t, err)
}

func TestLoadScenarioBiases(t *testing.T) {
	dir := writeScenario(t, `[]`, map[string]string{
		"scenario.json": `{"id": "cafe-push", "title": "Cafe push", "bias": {"cafe": 0.7, "grocery": 1.5}}`,
	})

	a, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "cafe-push", a.ScenarioID)
	assert.Equal(t, 0.7, a.Biases[CategoryCafe])
	assert.Equal(t, 1.0, a.Biases[CategoryGrocery], "bias clamped to [0,1]")
}

func TestLoadRejectsUnknownBiasCategory(t *testing.T) {
	dir := writeScenario(t, `[]`, map[string]string{
		"scenario.json": `{"id": "x", "bias": {"bakery": 0.5}}`,
	})
	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bakery")
}

func TestSyntheticDeterministic(t *testing.T) {
	a := Synthetic(7)
	b := Synthetic(7)

	require.Equal(t, len(a.POIs), len(b.POIs))
	for i := range a.POIs {
		assert.Equal(t, a.POIs[i].Category, b.POIs[i].Category)
		assert.Equal(t, a.POIs[i].Pos, b.POIs[i].Pos)
		assert.Equal(t, a.POIs[i].Name, b.POIs[i].Name)
	}

	for _, p := range a.POIs {
		assert.True(t, p.Category.Valid())
		assert.True(t, a.Grid.Walkable(p.Pos))
		assert.NotEmpty(t, p.Name)
	}
}

func TestSyntheticCoversEveryCategory(t *testing.T) {
	a := Synthetic(1)
	byCat := map[Category]int{}
	for _, p := range a.POIs {
		byCat[p.Category]++
	}
	for _, cat := range Categories {
		assert.Greater(t, byCat[cat], 0, "no %s POI generated", cat)
	}
}

func TestNearestPOITies(t *testing.T) {
	pois := []*POI{
		{Category: CategoryCafe, Pos: grid.Cell{Y: 0, X: 2}, Name: "first"},
		{Category: CategoryCafe, Pos: grid.Cell{Y: 2, X: 0}, Name: "second"},
	}
	// Both are two cells away; registry order breaks the tie.
	p := NearestPOI(pois, CategoryCafe, grid.Cell{Y: 0, X: 0})
	require.NotNil(t, p)
	assert.Equal(t, "first", p.Name)

	assert.Nil(t, NearestPOI(pois, CategoryPharmacy, grid.Cell{Y: 0, X: 0}))
}
