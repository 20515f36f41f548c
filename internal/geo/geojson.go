package geo

import (
	"bytes"
	"math"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/survey-stats/internal/shaper"
	"github.com/mohammed-shakir/survey-stats/internal/table"
)

// Collection is a geometry-bearing table encoded as a GeoJSON
// FeatureCollection with properties in column order.
type Collection struct {
	t *table.Table
}

func FeatureCollection(t *table.Table) *Collection { return &Collection{t: t} }

type feature struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Properties *shaper.Record    `json:"properties"`
	Geometry   *geojson.Geometry `json:"geometry"`
}

func (c *Collection) MarshalJSON() ([]byte, error) {
	cols := c.t.Columns()
	pts := c.t.Geometry()

	var buf bytes.Buffer
	buf.WriteString(`{"type":"FeatureCollection","features":[`)
	for i := range c.t.NumRows() {
		if i > 0 {
			buf.WriteByte(',')
		}
		props := shaper.NewRecord()
		row := c.t.Row(i)
		for j, name := range cols {
			props.Set(name, row[j])
		}
		f := feature{ID: strconv.Itoa(i), Type: "Feature", Properties: props}
		if i < len(pts) && !math.IsNaN(pts[i][0]) && !math.IsNaN(pts[i][1]) {
			f.Geometry = geojson.NewGeometry(pts[i])
		}
		b, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}
