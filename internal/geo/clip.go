package geo

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/survey-stats/internal/core/apperr"
	"github.com/mohammed-shakir/survey-stats/internal/table"
)

// DefaultLatLon are the coordinate columns used when the request names none.
var DefaultLatLon = [2]string{"latitude", "longitude"}

// Points derives one EPSG:4326 point per row from the latitude and longitude
// columns. Rows without numeric coordinates get a NaN point.
func Points(t *table.Table, latLon [2]string) ([]orb.Point, error) {
	lat, err := t.Column(latLon[0])
	if err != nil {
		return nil, apperr.Clip("clip", "latitude column: %w", err)
	}
	lon, err := t.Column(latLon[1])
	if err != nil {
		return nil, apperr.Clip("clip", "longitude column: %w", err)
	}
	pts := make([]orb.Point, len(lat))
	for i := range lat {
		y, okY := lat[i].Float()
		x, okX := lon[i].Float()
		if !okX || !okY {
			x, y = math.NaN(), math.NaN()
		}
		pts[i] = orb.Point{x, y}
	}
	return pts, nil
}

// Clip keeps the rows whose point lies inside box, boundary included.
// Geometry derived here is dropped again; geometry the table already
// carried is filtered along with its rows.
func Clip(t *table.Table, box BBox, crs CRSPair, latLon [2]string) error {
	derived := !t.HasGeometry()
	if derived {
		pts, err := Points(t, latLon)
		if err != nil {
			return err
		}
		if err := t.SetGeometry(pts); err != nil {
			return apperr.Clip("clip", "%w", err)
		}
	}

	bound := crs.destBound(box)
	pts := t.Geometry()
	t.Filter(func(i int, _ []table.Value) bool {
		p := pts[i]
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) {
			return false
		}
		return bound.Contains(transform(p, WGS84, crs.Dest))
	})

	if derived {
		t.DropGeometry()
	}
	return nil
}
