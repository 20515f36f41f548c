package geo

import (
	"fmt"
	"math"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/survey-stats/internal/core/apperr"
	"github.com/mohammed-shakir/survey-stats/internal/table"
)

const H3Column = "h3_cell"

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

// AnnotateH3 adds the H3 cell of each row as a text column. Geometry carried
// by the table wins over the lat/lon columns.
func AnnotateH3(t *table.Table, latLon [2]string, res int) error {
	if err := validateRes(res); err != nil {
		return apperr.Param("h3_res", "%w", err)
	}
	pts := t.Geometry()
	if pts == nil {
		var err error
		if pts, err = Points(t, latLon); err != nil {
			return err
		}
	}
	cells := make([]table.Value, len(pts))
	for i, p := range pts {
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) {
			continue
		}
		c, err := h3.LatLngToCell(h3.LatLng{Lat: p[1], Lng: p[0]}, res)
		if err != nil {
			continue
		}
		cells[i] = table.Text(c.String())
	}
	if err := t.SetColumn(H3Column, cells); err != nil {
		return apperr.Clip("h3", "%w", err)
	}
	return nil
}
