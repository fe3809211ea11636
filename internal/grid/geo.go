// Web-mercator mapping between lon/lat and grid cells, matching the
// EPSG:3857 frame the navigation assets are exported in.
package grid

import "math"

const earthRadiusM = 6378137.0

// GeoRef anchors a grid in web-mercator meters. OriginX/OriginY are the
// projected coordinates of the grid's (0,0) corner.
type GeoRef struct {
	OriginX float64 `json:"origin_x"`
	OriginY float64 `json:"origin_y"`
	CellM   float64 `json:"cell_m"`
}

// project converts lon/lat degrees to spherical-mercator meters.
func project(lon, lat float64) (x, y float64) {
	x = earthRadiusM * lon * math.Pi / 180
	y = earthRadiusM * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

// unproject converts spherical-mercator meters back to lon/lat degrees.
func unproject(x, y float64) (lon, lat float64) {
	lon = x / earthRadiusM * 180 / math.Pi
	lat = (2*math.Atan(math.Exp(y/earthRadiusM)) - math.Pi/2) * 180 / math.Pi
	return lon, lat
}

// LonLatToCell maps a lon/lat pair onto the grid. ok is false when the
// point projects outside the grid bounds.
func (ref GeoRef) LonLatToCell(g *Grid, lon, lat float64) (Cell, bool) {
	x, y := project(lon, lat)
	c := Cell{
		Y: int(math.Floor((y - ref.OriginY) / ref.CellM)),
		X: int(math.Floor((x - ref.OriginX) / ref.CellM)),
	}
	return c, g.InBounds(c)
}

// CellToLonLat maps a cell center back to lon/lat.
func (ref GeoRef) CellToLonLat(c Cell) (lon, lat float64) {
	x := ref.OriginX + (float64(c.X)+0.5)*ref.CellM
	y := ref.OriginY + (float64(c.Y)+0.5)*ref.CellM
	return unproject(x, y)
}
