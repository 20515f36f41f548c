package geo

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/survey-stats/internal/core/apperr"
	"github.com/mohammed-shakir/survey-stats/internal/table"
)

// five stations along a diagonal, plus one without coordinates
func stations() *table.Table {
	tb := table.New("station", "latitude", "longitude")
	for i := range 5 {
		f := float64(i)
		tb.AppendRow([]table.Value{table.Text(string(rune('A' + i))), table.Number(50 + f), table.Number(-8 + f)})
	}
	tb.AppendRow([]table.Value{table.Text("Z"), table.Empty(), table.Text("n/a")})
	return tb
}

func names(tb *table.Table) []string {
	var out []string
	for i := range tb.NumRows() {
		out = append(out, tb.Cell(i, "station").String())
	}
	return out
}

func TestParseBBox(t *testing.T) {
	bb, err := ParseBBox("-8, 50,-6,52")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if bb != (BBox{XMin: -8, YMin: 50, XMax: -6, YMax: 52}) {
		t.Fatalf("bb=%+v", bb)
	}
	for _, bad := range []string{"1,2,3", "a,1,2,3", "5,0,1,1", "0,5,1,1"} {
		if _, err := ParseBBox(bad); !apperr.Is(err, apperr.KindParameter) {
			t.Fatalf("%q: want ParameterError, got %v", bad, err)
		}
	}
}

func TestParseCRSPair(t *testing.T) {
	c, err := ParseCRSPair("")
	if err != nil || c != DefaultCRS() {
		t.Fatalf("default: %+v %v", c, err)
	}
	c, err = ParseCRSPair("epsg:900913,EPSG:4326")
	if err != nil || c.Source != WebMercator || c.Dest != WGS84 {
		t.Fatalf("alias: %+v %v", c, err)
	}
	c, err = ParseCRSPair("EPSG:3857")
	if err != nil || c.Source != WebMercator || c.Dest != WGS84 {
		t.Fatalf("source only: %+v %v", c, err)
	}
	if _, err := ParseCRSPair("EPSG:27700"); !apperr.Is(err, apperr.KindParameter) {
		t.Fatalf("want ParameterError, got %v", err)
	}
}

func TestClip_BoundaryInclusive(t *testing.T) {
	tb := stations()
	// corners sit exactly on B and D
	if err := Clip(tb, BBox{XMin: -7, YMin: 51, XMax: -5, YMax: 53}, DefaultCRS(), DefaultLatLon); err != nil {
		t.Fatalf("clip: %v", err)
	}
	if got := strings.Join(names(tb), ""); got != "BCD" {
		t.Fatalf("got %q want BCD", got)
	}
	if tb.HasGeometry() {
		t.Fatalf("derived geometry must be dropped")
	}
}

func TestClip_Monotonic(t *testing.T) {
	boxes := []BBox{
		{XMin: -6.5, YMin: 51.5, XMax: -5.5, YMax: 52.5},
		{XMin: -7, YMin: 51, XMax: -5, YMax: 53},
		{XMin: -9, YMin: 49, XMax: 0, YMax: 60},
	}
	prev := map[string]bool{}
	for i, b := range boxes {
		tb := stations()
		if err := Clip(tb, b, DefaultCRS(), DefaultLatLon); err != nil {
			t.Fatalf("clip %d: %v", i, err)
		}
		cur := map[string]bool{}
		for _, n := range names(tb) {
			cur[n] = true
		}
		for n := range prev {
			if !cur[n] {
				t.Fatalf("box %d lost %q kept by the smaller box", i, n)
			}
		}
		prev = cur
	}
	if len(prev) != 5 {
		t.Fatalf("widest box should keep every located row, got %v", prev)
	}
}

func TestClip_MercatorBBox(t *testing.T) {
	lo := project.Point(orb.Point{-7.5, 50.5}, project.WGS84.ToMercator)
	hi := project.Point(orb.Point{-5.5, 52.5}, project.WGS84.ToMercator)
	box := BBox{XMin: lo[0], YMin: lo[1], XMax: hi[0], YMax: hi[1]}

	for _, crs := range []CRSPair{
		{Source: WebMercator, Dest: WebMercator},
		{Source: WebMercator, Dest: WGS84},
	} {
		tb := stations()
		if err := Clip(tb, box, crs, DefaultLatLon); err != nil {
			t.Fatalf("clip %+v: %v", crs, err)
		}
		if got := strings.Join(names(tb), ""); got != "BC" {
			t.Fatalf("%+v: got %q want BC", crs, got)
		}
	}
}

func TestClip_MissingColumns(t *testing.T) {
	tb := table.New("lat", "lng")
	err := Clip(tb, BBox{}, DefaultCRS(), DefaultLatLon)
	if !apperr.Is(err, apperr.KindClip) {
		t.Fatalf("want ClipError, got %v", err)
	}
	if err := Clip(tb, BBox{}, DefaultCRS(), [2]string{"lat", "lng"}); err != nil {
		t.Fatalf("custom names: %v", err)
	}
}

func TestClip_KeepsCarriedGeometry(t *testing.T) {
	tb := stations()
	pts, err := Points(tb, DefaultLatLon)
	if err != nil {
		t.Fatalf("points: %v", err)
	}
	if err := tb.SetGeometry(pts); err != nil {
		t.Fatalf("set: %v", err)
	}
	tb.DropColumns("latitude", "longitude")

	if err := Clip(tb, BBox{XMin: -8, YMin: 50, XMax: -7, YMax: 51}, DefaultCRS(), DefaultLatLon); err != nil {
		t.Fatalf("clip: %v", err)
	}
	if tb.NumRows() != 2 || len(tb.Geometry()) != 2 {
		t.Fatalf("rows=%d geom=%d", tb.NumRows(), len(tb.Geometry()))
	}
}

func TestAnnotateH3(t *testing.T) {
	tb := stations()
	if err := AnnotateH3(tb, DefaultLatLon, 7); err != nil {
		t.Fatalf("annotate: %v", err)
	}
	want, err := h3.LatLngToCell(h3.LatLng{Lat: 50, Lng: -8}, 7)
	if err != nil {
		t.Fatalf("LatLngToCell: %v", err)
	}
	if got := tb.Cell(0, H3Column).String(); got != want.String() {
		t.Fatalf("cell=%q want %q", got, want.String())
	}
	if !tb.Cell(5, H3Column).IsEmpty() {
		t.Fatalf("row without coordinates should have no cell")
	}
	if err := AnnotateH3(tb, DefaultLatLon, 16); !apperr.Is(err, apperr.KindParameter) {
		t.Fatalf("want ParameterError for res 16, got %v", err)
	}
}

func TestFeatureCollection(t *testing.T) {
	tb := stations()
	pts, _ := Points(tb, DefaultLatLon)
	_ = tb.SetGeometry(pts)
	tb.DropColumns("latitude", "longitude")

	b, err := json.Marshal(FeatureCollection(tb))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID         string         `json:"id"`
			Properties map[string]any `json:"properties"`
			Geometry   *struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, b)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 6 {
		t.Fatalf("fc=%s", b)
	}
	f0 := fc.Features[0]
	if f0.ID != "0" || f0.Properties["station"] != "A" || f0.Geometry.Type != "Point" {
		t.Fatalf("feature 0=%+v", f0)
	}
	if f0.Geometry.Coordinates[0] != -8 || f0.Geometry.Coordinates[1] != 50 {
		t.Fatalf("coords=%v", f0.Geometry.Coordinates)
	}
	if fc.Features[5].Geometry != nil {
		t.Fatalf("row without coordinates should have null geometry")
	}
}
